package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
)

// Factory builds the integration's Plugin over an established transport.
// token is the handshake token the client passed on the command line.
type Factory func(r io.Reader, w io.Writer, token string) *Plugin

// Run is the process entry point for an integration. argv is the raw command
// line: argv[1] is the handshake token, argv[2] the local port the client
// listens on, and the optional argv[3] a log file path. Run exits the
// process with: 1 too few arguments, 2 non-integer port, 3 port out of
// range, 4 no plugin produced, 5 failure while running.
func Run(factory Factory, argv []string) {
	if len(argv) < 3 {
		slog.Error("not enough parameters, required: token, port")
		os.Exit(1)
	}
	token := argv[1]

	port, err := strconv.Atoi(argv[2])
	if err != nil {
		slog.Error("failed to parse port value", "port", argv[2])
		os.Exit(2)
	}
	if port < 1 || port > 65535 {
		slog.Error("port value out of range (1, 65535)")
		os.Exit(3)
	}

	if len(argv) >= 4 {
		logFile, err := os.OpenFile(argv[3], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("failed to open log file", "path", argv[3], "error", err)
			os.Exit(5)
		}
		defer logFile.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))
	}

	if factory == nil {
		slog.Error("factory must produce a Plugin")
		os.Exit(4)
	}

	if err := run(factory, token, port); err != nil {
		slog.Error("error while running plugin", "error", err)
		os.Exit(5)
	}
}

func run(factory Factory, token string, port int) error {
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("platform: dial client: %w", err)
	}
	defer conn.Close()
	slog.Info("using local address", "address", conn.LocalAddr().String())

	p := factory(conn, conn, token)
	if p == nil {
		slog.Error("factory must produce a Plugin")
		os.Exit(4)
	}
	defer func() {
		p.Close()
		p.WaitClosed()
	}()

	p.Run(context.Background())
	return nil
}
