package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind Kind
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, KindRequest},
		{"request with string id", `{"jsonrpc":"2.0","id":"3","method":"ping"}`, KindRequest},
		{"notification", `{"jsonrpc":"2.0","method":"launch_game","params":{"game_id":"1"}}`, KindNotification},
		{"success response", `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, KindResponse},
		{"null result response", `{"jsonrpc":"2.0","id":1,"result":null}`, KindResponse},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":600,"message":"Import already in progress"}}`, KindResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, perr := Parse([]byte(tt.line))
			require.Nil(t, perr)
			assert.Equal(t, tt.kind, env.Kind())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		code int
	}{
		{"malformed json", `{"jsonrpc":"2.0"`, codeParseError},
		{"not json at all", `hello`, codeParseError},
		{"missing version", `{"id":1,"method":"ping"}`, codeInvalidRequest},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, codeInvalidRequest},
		{"unknown field", `{"jsonrpc":"2.0","id":1,"method":"ping","extra":1}`, codeInvalidRequest},
		{"method with result", `{"jsonrpc":"2.0","id":1,"method":"ping","result":null}`, codeInvalidRequest},
		{"no method no result", `{"jsonrpc":"2.0","id":1}`, codeInvalidRequest},
		{"wrong field type", `{"jsonrpc":"2.0","id":1,"method":17}`, codeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, perr := Parse([]byte(tt.line))
			require.Nil(t, env)
			require.NotNil(t, perr)
			assert.Equal(t, tt.code, perr.Code)
		})
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	envs := []*Envelope{
		{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "get_capabilities"},
		{JSONRPC: "2.0", Method: "friend_added", Params: json.RawMessage(`{"friend_info":{"user_id":"7","user_name":"x"}}`)},
		{JSONRPC: "2.0", ID: json.RawMessage(`"3"`), Result: json.RawMessage(`{"token":"t"}`)},
		{JSONRPC: "2.0", ID: json.RawMessage("4"), Error: &Error{Code: 600, Message: "Import already in progress"}},
	}
	for _, env := range envs {
		line, err := Serialize(env)
		require.NoError(t, err)
		assert.Equal(t, byte('\n'), line[len(line)-1])

		parsed, perr := Parse(line[:len(line)-1])
		require.Nil(t, perr)
		assert.Equal(t, env.Kind(), parsed.Kind())
		assert.Equal(t, env.Method, parsed.Method)
		assert.JSONEq(t, string(jsonOrNull(env.ID)), string(jsonOrNull(parsed.ID)))
	}
}

func jsonOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func TestSerializeOmitsUnsetFields(t *testing.T) {
	line, err := Serialize(&Envelope{JSONRPC: "2.0", Method: "ping"})
	require.NoError(t, err)
	assert.NotContains(t, string(line), "result")
	assert.NotContains(t, string(line), "error")
	assert.NotContains(t, string(line), "id")
}
