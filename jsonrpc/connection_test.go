package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediateRequestDispatch(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("echo", Method{Handler: immediateEcho, Immediate: true})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":"3","method":"echo","params":{"msg":"hello"}}`)

	reply := decodeLine(t, w.waitLine(t))
	assert.Equal(t, "2.0", reply["jsonrpc"])
	assert.Equal(t, "3", reply["id"])
	assert.Equal(t, map[string]any{"msg": "hello"}, reply["result"])
}

func TestDeferredRequestDispatch(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("slow", Method{
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return "done", nil
		},
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"slow"}`)

	reply := decodeLine(t, w.waitLine(t))
	assert.Equal(t, float64(1), reply["id"])
	assert.Equal(t, "done", reply["result"])
}

func TestDeferredHandlersDoNotBlockReadLoop(t *testing.T) {
	conn, in, w := newTestConnection(t)

	release := make(chan struct{})
	conn.RegisterMethod("blocked", Method{
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			<-release
			return "late", nil
		},
	})
	conn.RegisterMethod("quick", Method{
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return "early", nil
		},
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"blocked"}`)
	in.writeLine(t, `{"jsonrpc":"2.0","id":2,"method":"quick"}`)

	first := decodeLine(t, w.waitLine(t))
	assert.Equal(t, float64(2), first["id"])
	assert.Equal(t, "early", first["result"])

	close(release)
	second := decodeLine(t, w.waitLine(t))
	assert.Equal(t, float64(1), second["id"])
}

func TestUnknownRequestRepliesMethodNotFound(t *testing.T) {
	conn, in, w := newTestConnection(t)

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":5,"method":"no_such_method"}`)

	reply := decodeLine(t, w.waitLine(t))
	errObj := reply["error"].(map[string]any)
	assert.Equal(t, float64(codeMethodNotFound), errObj["code"])
	assert.Equal(t, float64(5), reply["id"])
}

func TestUnknownNotificationIsDropped(t *testing.T) {
	conn, in, w := newTestConnection(t)

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","method":"no_such_notification"}`)
	w.expectNoLine(t, 50*time.Millisecond)
}

func TestNotificationWithInvalidParamsIsDroppedNotAnswered(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterNotification("typed", Method{
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			var in struct {
				Num int `json:"num"`
			}
			return nil, UnmarshalParams(params, &in)
		},
		Immediate: true,
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","method":"typed","params":{"num":"not a number"}}`)
	w.expectNoLine(t, 50*time.Millisecond)
}

func TestNotificationDispatch(t *testing.T) {
	conn, in, _ := newTestConnection(t)

	received := make(chan string, 1)
	conn.RegisterNotification("launch_game", Method{
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				GameID string `json:"game_id"`
			}
			if err := UnmarshalParams(params, &p); err != nil {
				return nil, err
			}
			received <- p.GameID
			return nil, nil
		},
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","method":"launch_game","params":{"game_id":"42"}}`)

	select {
	case id := <-received:
		assert.Equal(t, "42", id)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestHandlerErrorTranslation(t *testing.T) {
	conn, in, w := newTestConnection(t)

	conn.RegisterMethod("not_implemented", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return nil, ErrNotImplemented
		},
	})
	conn.RegisterMethod("app_error", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return nil, NewApplicationError(4, "Backend error", nil)
		},
	})
	conn.RegisterMethod("boom", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return nil, errors.New("nil map write")
		},
	})
	conn.RegisterMethod("cancelled", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return nil, context.Canceled
		},
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	cases := []struct {
		method   string
		wantCode float64
		wantData any
	}{
		{"not_implemented", float64(codeMethodNotFound), nil},
		{"app_error", float64(4), nil},
		{"boom", float64(0), "nil map write"},
		{"cancelled", float64(codeAborted), nil},
	}
	for i, tc := range cases {
		in.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"%s"}`, i+1, tc.method))
		reply := decodeLine(t, w.waitLine(t))
		errObj, ok := reply["error"].(map[string]any)
		require.True(t, ok, "expected error reply for %s, got %v", tc.method, reply)
		assert.Equal(t, tc.wantCode, errObj["code"], tc.method)
		if tc.wantData != nil {
			assert.Equal(t, tc.wantData, errObj["data"], tc.method)
		}
	}
}

func TestResultNameWrapping(t *testing.T) {
	conn, in, w := newTestConnection(t)
	games := []map[string]any{{"game_id": "1"}}

	conn.RegisterMethod("import_owned_games", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return games, nil
		},
		ResultName: "owned_games",
	})
	conn.RegisterMethod("import_owned_games_now", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return games, nil
		},
		Immediate:  true,
		ResultName: "owned_games",
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	for _, method := range []string{"import_owned_games", "import_owned_games_now"} {
		in.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"%s"}`, method))
		reply := decodeLine(t, w.waitLine(t))
		result, ok := reply["result"].(map[string]any)
		require.True(t, ok, method)
		assert.Contains(t, result, "owned_games", method)
	}
}

func TestOutboundRequestCorrelationIsOrderIndependent(t *testing.T) {
	conn, in, w := newTestConnection(t)

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	type outcome struct {
		result json.RawMessage
		err    error
	}
	results := make(map[string]outcome)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, method := range []string{"first", "second"} {
		wg.Add(1)
		go func(method string) {
			defer wg.Done()
			res, err := conn.Request(context.Background(), method, nil, SensitiveNone())
			mu.Lock()
			results[method] = outcome{res, err}
			mu.Unlock()
		}(method)
	}

	// Learn which id each request got from the outbound lines, then answer
	// in the opposite order.
	idByMethod := make(map[string]float64)
	for i := 0; i < 2; i++ {
		req := decodeLine(t, w.waitLine(t))
		idByMethod[req["method"].(string)] = req["id"].(float64)
	}
	in.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"answer-second"}`, int(idByMethod["second"])))
	in.writeLine(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"answer-first"}`, int(idByMethod["first"])))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, results["first"].err)
	require.NoError(t, results["second"].err)
	assert.JSONEq(t, `"answer-first"`, string(results["first"].result))
	assert.JSONEq(t, `"answer-second"`, string(results["second"].result))
}

func TestOutboundRequestErrorResponse(t *testing.T) {
	conn, in, _ := newTestConnection(t)

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Request(context.Background(), "refresh_credentials", nil, SensitiveAll())
		done <- err
	}()

	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.pending) == 1
	}, 2*time.Second, time.Millisecond)

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"error":{"code":100,"message":"Invalid credentials"}}`)

	err := <-done
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 100, rpcErr.Code)
	assert.Equal(t, "Invalid credentials", rpcErr.Message)
}

func TestUnknownResponseIDIsNoOp(t *testing.T) {
	conn, in, w := newTestConnection(t)

	go conn.Run(context.Background())

	in.writeLine(t, `{"jsonrpc":"2.0","id":999,"result":"orphan"}`)
	w.expectNoLine(t, 50*time.Millisecond)

	// The loop is still alive and dispatching.
	conn.RegisterMethod("ping", Method{
		Handler:   func(context.Context, json.RawMessage) (any, error) { return nil, nil },
		Immediate: true,
	})
	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	reply := decodeLine(t, w.waitLine(t))
	_, hasResult := reply["result"]
	assert.True(t, hasResult)

	closeTestConnection(conn, in)
}

func TestOutboundRequestTimeoutViaContext(t *testing.T) {
	conn, in, _ := newTestConnection(t)

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := conn.Request(ctx, "never_answered", nil, SensitiveNone())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned correlation entry is gone.
	conn.mu.Lock()
	assert.Empty(t, conn.pending)
	conn.mu.Unlock()
}

func TestRedactionNeverTouchesTheWire(t *testing.T) {
	conn, _, w := newTestConnection(t)

	conn.Notify("store_credentials", map[string]any{"session_token": "s3cret"}, SensitiveAll())

	line := string(w.waitLine(t))
	assert.Contains(t, line, "s3cret")
	assert.NotContains(t, line, maskToken)
}

func TestRequestSplitAcrossTwoReadsDispatchesOnce(t *testing.T) {
	conn, in, w := newTestConnection(t)

	var calls int
	var mu sync.Mutex
	conn.RegisterMethod("counted", Method{
		Handler: func(context.Context, json.RawMessage) (any, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil, nil
		},
		Immediate: true,
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeRaw(t, `{"jsonrpc":"2.0","id":7,`)
	time.Sleep(20 * time.Millisecond)
	in.writeRaw(t, `"method":"counted"}`+"\n")

	reply := decodeLine(t, w.waitLine(t))
	assert.Equal(t, float64(7), reply["id"])
	w.expectNoLine(t, 50*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestParseErrorGetsErrorReplyAndLoopSurvives(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("ping", Method{
		Handler:   func(context.Context, json.RawMessage) (any, error) { return nil, nil },
		Immediate: true,
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":`)
	reply := decodeLine(t, w.waitLine(t))
	errObj := reply["error"].(map[string]any)
	assert.Equal(t, float64(codeParseError), errObj["code"])
	assert.Nil(t, reply["id"])

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	reply = decodeLine(t, w.waitLine(t))
	assert.Equal(t, float64(1), reply["id"])
}

func TestEOFClosesConnectionAndFailsPending(t *testing.T) {
	conn, in, _ := newTestConnection(t)

	go conn.Run(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := conn.Request(context.Background(), "never", nil, SensitiveNone())
		done <- err
	}()

	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.pending) == 1
	}, 2*time.Second, time.Millisecond)

	in.close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not failed on EOF")
	}
	assert.False(t, conn.isActive())
}

func TestCloseLeavesBlockedReadUntilTransportCloses(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("ping", Method{
		Handler:   func(context.Context, json.RawMessage) (any, error) { return nil, nil },
		Immediate: true,
	})

	done := make(chan struct{})
	go func() {
		conn.Run(context.Background())
		close(done)
	}()

	// Park the loop inside a transport read before closing.
	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	w.waitLine(t)
	time.Sleep(20 * time.Millisecond)

	conn.Close()
	select {
	case <-done:
		t.Fatal("Run returned without the transport closing")
	case <-time.After(50 * time.Millisecond):
	}

	in.close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the transport closed")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, _, _ := newTestConnection(t)
	conn.Close()
	conn.Close()
	assert.False(t, conn.isActive())
}

func TestLastRegistrationWins(t *testing.T) {
	conn, in, w := newTestConnection(t)
	conn.RegisterMethod("m", Method{
		Handler:   func(context.Context, json.RawMessage) (any, error) { return "old", nil },
		Immediate: true,
	})
	conn.RegisterMethod("m", Method{
		Handler:   func(context.Context, json.RawMessage) (any, error) { return "new", nil },
		Immediate: true,
	})

	go conn.Run(context.Background())
	defer closeTestConnection(conn, in)

	in.writeLine(t, `{"jsonrpc":"2.0","id":1,"method":"m"}`)
	reply := decodeLine(t, w.waitLine(t))
	assert.Equal(t, "new", reply["result"])
}
