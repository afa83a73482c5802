package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erg0nix/spill/jsonrpc"
)

// Notifications an integration is known to send; each gets a printing
// handler so nothing lands in the unknown-notification log.
var integrationNotifications = []string{
	"store_credentials",
	"owned_game_added",
	"owned_game_removed",
	"owned_game_updated",
	"achievement_unlocked",
	"local_game_status_changed",
	"friend_added",
	"friend_removed",
	"game_time_updated",
	"user_presence_updated",
	"authentication_lost",
	"push_cache",
	"game_achievements_import_success",
	"game_achievements_import_failure",
	"achievements_import_finished",
	"game_time_import_success",
	"game_time_import_failure",
	"game_times_import_finished",
	"game_library_settings_import_success",
	"game_library_settings_import_failure",
	"game_library_settings_import_finished",
	"os_compatibility_import_success",
	"os_compatibility_import_failure",
	"os_compatibility_import_finished",
	"user_presence_import_success",
	"user_presence_import_failure",
	"user_presence_import_finished",
	"local_size_import_success",
	"local_size_import_failure",
	"local_size_import_finished",
	"subscription_games_import_success",
	"subscription_games_import_failure",
	"subscription_games_partial_import_finished",
	"subscription_games_import_finished",
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "listen for one integration and drive its handshake",
		RunE:  runServeCmd,
	}
	cmd.Flags().String("bind", "", "listen address (overrides config)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.Bind = bind
	}
	logger := newLogger(cfg.LogLevel)

	token := uuid.NewString()

	listener, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Bind, err)
	}
	defer listener.Close()

	fmt.Println(styleHeader.Render("spillhost listening on " + listener.Addr().String()))
	fmt.Println(styleDim.Render("handshake token: " + token))
	fmt.Println(styleDim.Render("start your integration with: <binary> " + token + " " + port(listener.Addr())))

	netConn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer netConn.Close()
	fmt.Println(styleSuccess.Render("integration connected from " + netConn.RemoteAddr().String()))

	conn := jsonrpc.New(netConn, netConn, logger)
	for _, name := range integrationNotifications {
		conn.RegisterNotification(name, jsonrpc.Method{
			Handler:   printNotification(name),
			Immediate: true,
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.Run(context.Background())
	}()

	ctx := context.Background()
	caps, err := conn.Request(ctx, "get_capabilities", nil, jsonrpc.SensitiveNone())
	if err != nil {
		return fmt.Errorf("get_capabilities: %w", err)
	}
	printExchange("get_capabilities", caps)

	if _, err := conn.Request(ctx, "initialize_cache",
		map[string]any{"data": map[string]any{}}, jsonrpc.SensitiveKeys("data")); err != nil {
		return fmt.Errorf("initialize_cache: %w", err)
	}
	printExchange("initialize_cache", nil)

	<-done
	conn.WaitClosed()
	fmt.Println(styleDim.Render("integration disconnected"))
	return nil
}

func printNotification(name string) jsonrpc.Handler {
	return func(_ context.Context, params json.RawMessage) (any, error) {
		payload := "{}"
		if len(params) > 0 {
			payload = string(params)
		}
		fmt.Println(styleDirIn.Render("<- ") + styleMethod.Render(name) + " " + stylePayload.Render(payload))
		return nil, nil
	}
}

func printExchange(method string, result json.RawMessage) {
	line := styleDirOut.Render("-> ") + styleMethod.Render(method)
	if len(result) > 0 {
		line += " " + stylePayload.Render(string(result))
	}
	fmt.Println(line)
}

func port(addr net.Addr) string {
	_, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "?"
	}
	return p
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
