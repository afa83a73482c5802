// Package jsonrpc implements a bidirectional JSON-RPC 2.0 endpoint over
// line-delimited JSON. The Connection owns the read loop, the method and
// notification registries, and the correlation table for requests it sends
// to the peer. Transport setup is the caller's concern; the connection only
// needs an io.Reader and an io.Writer.
package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/erg0nix/spill/task"
)

const maxMessageSize = 10 * 1024 * 1024

// Handler handles one inbound request or notification. Params arrive as raw
// JSON; handlers decode them into their own typed structure and surface
// decode failures as InvalidParams.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Method describes a registered handler.
type Method struct {
	Handler Handler

	// Immediate handlers run inline on the read loop and must not block.
	// Deferred handlers are scheduled as supervised tasks.
	Immediate bool

	// Sensitive drives log redaction for inbound params. Wire payloads are
	// never affected.
	Sensitive Sensitive

	// ResultName, when set, wraps the handler's return value in a
	// single-key object before it becomes the response result.
	ResultName string
}

type response struct {
	result json.RawMessage
	err    *Error
}

// Connection is one end of a line-delimited JSON-RPC 2.0 channel.
type Connection struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	tasks   *task.Manager

	writeMu sync.Mutex
	writer  io.Writer

	mu            sync.Mutex
	methods       map[string]Method
	notifications map[string]Method
	pending       map[int64]pendingRequest
	nextID        int64
	active        bool
	closed        chan struct{}
}

type pendingRequest struct {
	ch        chan response
	sensitive Sensitive
}

// New creates a Connection over the given transport. A nil logger falls back
// to slog.Default. The read loop does not start until Run is called.
func New(r io.Reader, w io.Writer, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	return &Connection{
		scanner:       scanner,
		writer:        w,
		logger:        logger,
		tasks:         task.NewManager("jsonrpc connection", logger),
		methods:       make(map[string]Method),
		notifications: make(map[string]Method),
		pending:       make(map[int64]pendingRequest),
		active:        true,
		closed:        make(chan struct{}),
	}
}

// RegisterMethod registers a request handler under the given wire name.
// The last registration for a name wins.
func (c *Connection) RegisterMethod(name string, m Method) {
	c.mu.Lock()
	c.methods[name] = m
	c.mu.Unlock()
}

// RegisterNotification registers a notification handler under the given wire
// name. The last registration for a name wins; ResultName is ignored.
func (c *Connection) RegisterNotification(name string, m Method) {
	c.mu.Lock()
	c.notifications[name] = m
	c.mu.Unlock()
}

// Run is the read loop. It consumes one line at a time and dispatches until
// the stream ends, a read fails, or Close is called. Deferred handlers keep
// running after Run returns; use WaitClosed to drain them.
func (c *Connection) Run(ctx context.Context) {
	for c.isActive() {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				c.logger.Debug("read failed, treating as EOF", "error", err)
			} else {
				c.logger.Info("received EOF")
			}
			break
		}
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		c.logger.Debug("received data", "bytes", len(line))
		c.handleLine(ctx, line)
	}
	c.Close()
	c.failPending()
}

// Close marks the connection closed; the read loop exits before dispatching
// another message. A read blocked on the transport only returns once the
// transport itself is closed or hits EOF, so the transport's owner closes it
// alongside Close. Idempotent. In-flight handler tasks are not cancelled;
// callers drain those via WaitClosed.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	close(c.closed)
	c.logger.Info("closing connection, no more messages will be read")
}

// WaitClosed blocks until every scheduled handler task has finished.
func (c *Connection) WaitClosed() {
	c.tasks.Wait()
}

func (c *Connection) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Connection) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]pendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.ch <- response{err: &Error{Code: codeAborted, Message: "connection closed"}}
	}
}

func (c *Connection) handleLine(ctx context.Context, line []byte) {
	env, perr := Parse(line)
	if perr != nil {
		c.sendError(null, perr)
		return
	}
	switch env.Kind() {
	case KindResponse:
		c.handleResponse(env)
	case KindRequest:
		c.handleRequest(ctx, env)
	case KindNotification:
		c.handleNotification(ctx, env)
	}
}

func (c *Connection) handleNotification(ctx context.Context, env *Envelope) {
	c.mu.Lock()
	m, ok := c.notifications[env.Method]
	c.mu.Unlock()
	if !ok {
		c.logger.Error("received unknown notification", "method", env.Method)
		return
	}

	c.logger.Info("handling notification", "method", env.Method, "params", redactParams(env.Params, m.Sensitive))

	if m.Immediate {
		if _, err := m.Handler(ctx, env.Params); err != nil {
			c.logger.Error("notification handler failed", "method", env.Method, "error", err)
		}
		return
	}

	method := env.Method
	params := env.Params
	c.tasks.Create(ctx, method, false, func(tctx context.Context) (any, error) {
		_, err := m.Handler(tctx, params)
		return nil, err
	})
}

func (c *Connection) handleRequest(ctx context.Context, env *Envelope) {
	c.mu.Lock()
	m, ok := c.methods[env.Method]
	c.mu.Unlock()
	if !ok {
		c.logger.Error("received unknown request", "method", env.Method)
		c.sendError(env.ID, MethodNotFound())
		return
	}

	c.logger.Info("handling request", "id", string(env.ID), "method", env.Method,
		"params", redactParams(env.Params, m.Sensitive))

	if m.Immediate {
		result, err := m.Handler(ctx, env.Params)
		c.reply(env.ID, env.Method, m.ResultName, result, err)
		return
	}

	id := env.ID
	method := env.Method
	params := env.Params
	c.tasks.Create(ctx, method, true, func(tctx context.Context) (any, error) {
		result, err := m.Handler(tctx, params)
		c.reply(id, method, m.ResultName, result, err)
		return nil, nil
	})
}

// reply translates a handler outcome into exactly one response envelope.
func (c *Connection) reply(id json.RawMessage, method, resultName string, result any, err error) {
	switch {
	case err == nil:
		if resultName != "" {
			result = map[string]any{resultName: result}
		}
		c.sendResult(id, result)
	case errors.Is(err, ErrNotImplemented):
		c.sendError(id, MethodNotFound())
	case errors.Is(err, context.Canceled):
		c.sendError(id, Aborted())
	default:
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			c.sendError(id, rpcErr)
			return
		}
		c.logger.Error("unexpected error in request handler", "method", method, "error", err)
		c.sendError(id, UnknownError(err.Error()))
	}
}

func (c *Connection) handleResponse(env *Envelope) {
	var id int64
	if err := json.Unmarshal(env.ID, &id); err != nil {
		c.logger.Warn("received response with unparsable id", "id", string(env.ID))
		return
	}

	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("received response with unknown id", "id", id)
		return
	}

	if env.Error != nil {
		p.ch <- response{err: env.Error}
		return
	}
	p.ch <- response{result: env.Result}
}

// Request sends a request to the peer and blocks until the matching response
// arrives or ctx ends. There is no built-in timeout; bound the wait through
// ctx. Peer errors come back as *Error.
func (c *Connection) Request(ctx context.Context, method string, params any, sensitive Sensitive) (json.RawMessage, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, fmt.Errorf("jsonrpc: connection closed")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.pending[id] = pendingRequest{ch: ch, sensitive: sensitive}
	c.mu.Unlock()

	c.logger.Info("sending request", "id", id, "method", method, "params", redactValue(params, sensitive))

	rawParams, err := marshalParams(params)
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("jsonrpc: marshal params: %w", err)
	}
	idRaw, _ := json.Marshal(id)
	if err := c.write(&Envelope{JSONRPC: "2.0", ID: idRaw, Method: method, Params: rawParams}); err != nil {
		c.dropPending(id)
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return nil, resp.err
		}
		return resp.result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	case <-c.closed:
		c.dropPending(id)
		return nil, fmt.Errorf("jsonrpc: connection closed")
	}
}

// Notify sends a notification to the peer. Fire and forget: no correlation
// entry is created and no reply will ever arrive.
func (c *Connection) Notify(method string, params any, sensitive Sensitive) {
	c.logger.Info("sending notification", "method", method, "params", redactValue(params, sensitive))
	rawParams, err := marshalParams(params)
	if err != nil {
		c.logger.Error("failed to encode notification params", "method", method, "error", err)
		return
	}
	_ = c.write(&Envelope{JSONRPC: "2.0", Method: method, Params: rawParams})
}

func (c *Connection) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Connection) sendResult(id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("failed to encode response result", "error", err)
		return
	}
	_ = c.write(&Envelope{JSONRPC: "2.0", ID: id, Result: data})
}

func (c *Connection) sendError(id json.RawMessage, e *Error) {
	if len(id) == 0 {
		id = null
	}
	_ = c.write(&Envelope{JSONRPC: "2.0", ID: id, Error: e})
}

func (c *Connection) write(env *Envelope) error {
	data, err := Serialize(env)
	if err != nil {
		c.logger.Error("failed to encode outgoing message", "error", err)
		return err
	}
	c.logger.Debug("sending data", "bytes", len(data))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(data); err != nil {
		c.logger.Error("write failed", "error", err)
		return err
	}
	return nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
