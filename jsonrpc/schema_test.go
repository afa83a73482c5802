package jsonrpc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/require"
)

var (
	schemaCompilerOnce sync.Once
	schemaCompiler     *jsonschema.Compiler
	schemaCompilerErr  error
)

func setupSchemaCompiler() {
	data, err := os.ReadFile("schema.json")
	if err != nil {
		schemaCompilerErr = fmt.Errorf("read schema: %w", err)
		return
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		schemaCompilerErr = fmt.Errorf("parse schema: %w", err)
		return
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		schemaCompilerErr = fmt.Errorf("add resource: %w", err)
		return
	}
	schemaCompiler = c
}

func assertSchemaValid(t *testing.T, defName string, line []byte) {
	t.Helper()

	schemaCompilerOnce.Do(setupSchemaCompiler)
	require.NoError(t, schemaCompilerErr)

	sch, err := schemaCompiler.Compile("schema.json#/$defs/" + defName)
	require.NoError(t, err, "compile %s", defName)

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(line))
	require.NoError(t, err, "parse instance")

	require.NoError(t, sch.Validate(inst), "validate against %s: %s", defName, line)
}

func TestOutboundRequestMatchesSchema(t *testing.T) {
	conn, _, w := newTestConnection(t)

	go func() {
		_, _ = conn.Request(context.Background(), "refresh_credentials",
			map[string]any{"reason": "expired"}, SensitiveNone())
	}()

	line := w.waitLine(t)
	assertSchemaValid(t, "request", line)
}

func TestOutboundNotificationMatchesSchema(t *testing.T) {
	conn, _, w := newTestConnection(t)

	conn.Notify("owned_game_added", map[string]any{"owned_game": map[string]any{"game_id": "1"}}, SensitiveNone())

	line := w.waitLine(t)
	assertSchemaValid(t, "notification", line)
}

func TestOutboundResponsesMatchSchema(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("echo", Method{
		Handler:   immediateEcho,
		Immediate: true,
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"echo","params":{"msg":"hi"}}`)
	assertSchemaValid(t, "response", w.waitLine(t))

	in.writeLine(t, `{"jsonrpc":"2.0","id":2,"method":"nope"}`)
	assertSchemaValid(t, "response", w.waitLine(t))

	in.writeLine(t, `{"jsonrpc":"1.0","id":3,"method":"echo"}`)
	assertSchemaValid(t, "response", w.waitLine(t))
}
