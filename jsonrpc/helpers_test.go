package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

// lineWriter captures outbound wire lines for assertions.
type lineWriter struct {
	lines chan []byte
	buf   bytes.Buffer
}

func newLineWriter() *lineWriter {
	return &lineWriter{lines: make(chan []byte, 64)}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return len(p), nil
		}
		line := append([]byte(nil), data[:idx]...)
		w.buf.Next(idx + 1)
		w.lines <- line
	}
}

func (w *lineWriter) waitLine(t *testing.T) []byte {
	t.Helper()
	select {
	case line := <-w.lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("no line written")
		return nil
	}
}

func (w *lineWriter) expectNoLine(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line := <-w.lines:
		t.Fatalf("unexpected line written: %s", line)
	case <-time.After(d):
	}
}

// pipeInput feeds inbound wire lines to the connection under test.
type pipeInput struct {
	w *io.PipeWriter
}

func (in *pipeInput) writeLine(t *testing.T, s string) {
	t.Helper()
	if _, err := in.w.Write([]byte(s + "\n")); err != nil {
		t.Fatalf("write line: %v", err)
	}
}

func (in *pipeInput) writeRaw(t *testing.T, s string) {
	t.Helper()
	if _, err := in.w.Write([]byte(s)); err != nil {
		t.Fatalf("write raw: %v", err)
	}
}

func (in *pipeInput) close() {
	in.w.Close()
}

func newTestConnection(t *testing.T) (*Connection, *pipeInput, *lineWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	w := newLineWriter()
	conn := New(pr, w, slog.New(slog.DiscardHandler))
	t.Cleanup(func() {
		conn.Close()
		pw.Close()
	})
	return conn, &pipeInput{w: pw}, w
}

func closeTestConnection(conn *Connection, in *pipeInput) {
	in.close()
	conn.Close()
	conn.WaitClosed()
}

func immediateEcho(_ context.Context, params json.RawMessage) (any, error) {
	var m map[string]any
	if err := UnmarshalParams(params, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeLine(t *testing.T, line []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("decode line %q: %v", line, err)
	}
	return m
}
