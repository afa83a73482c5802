package platform

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

// lineWriter captures the plugin's outbound wire lines.
type lineWriter struct {
	lines chan []byte
	buf   bytes.Buffer
}

func newLineWriter() *lineWriter {
	return &lineWriter{lines: make(chan []byte, 256)}
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

type pipeInput struct {
	w *io.PipeWriter
}

func (in *pipeInput) writeLine(t *testing.T, s string) {
	t.Helper()
	if _, err := in.w.Write([]byte(s + "\n")); err != nil {
		t.Fatalf("write line: %v", err)
	}
}

func (in *pipeInput) close() {
	in.w.Close()
}

func newTestPlugin(t *testing.T) (*Plugin, *pipeInput, *lineWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	w := newLineWriter()
	p := New(PlatformTest, "0.1", pr, w, "token-1", slog.New(slog.DiscardHandler))
	t.Cleanup(func() {
		p.Close()
		pw.Close()
		p.WaitClosed()
	})
	return p, &pipeInput{w: pw}, w
}

func decodeLine(t *testing.T, line []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("decode line %q: %v", line, err)
	}
	return m
}

// waitNotification reads lines until one with the given method arrives.
func waitNotification(t *testing.T, w *lineWriter, method string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-w.lines:
			m := decodeLine(t, line)
			if m["method"] == method {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s notification", method)
			return nil
		}
	}
}
