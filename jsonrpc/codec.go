package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Kind classifies a parsed envelope.
type Kind int

const (
	KindRequest Kind = iota
	KindNotification
	KindResponse
)

// Envelope is one JSON-RPC 2.0 message: a request, a notification or a
// response. Exactly one interpretation applies, see Kind.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Kind reports how the envelope classifies: anything carrying a result or an
// error is a response, otherwise the presence of an id separates requests
// from notifications.
func (e *Envelope) Kind() Kind {
	if len(e.Result) > 0 || e.Error != nil {
		return KindResponse
	}
	if len(e.ID) > 0 {
		return KindRequest
	}
	return KindNotification
}

var null = json.RawMessage("null")

// Parse decodes one line into an envelope. Malformed JSON yields a parse
// error; a wrong or missing version tag, unknown top-level fields, or an
// envelope that mixes a method with a result/error yield an invalid request.
func Parse(line []byte) (*Envelope, *Error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ParseError()
		}
		return nil, InvalidRequest()
	}
	if env.JSONRPC != "2.0" {
		return nil, InvalidRequest()
	}
	if env.Method != "" && (len(env.Result) > 0 || env.Error != nil) {
		return nil, InvalidRequest()
	}
	if env.Method == "" && len(env.Result) == 0 && env.Error == nil {
		return nil, InvalidRequest()
	}
	return &env, nil
}

// Serialize encodes the envelope as a single newline-terminated line.
func Serialize(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
