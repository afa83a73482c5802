package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/erg0nix/spill/platform"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo <token> <host:port>",
		Short: "run a sample integration against a host",
		Args:  cobra.ExactArgs(2),
		RunE:  runDemoCmd,
	}
	return cmd
}

func runDemoCmd(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	netConn, err := net.Dial("tcp", args[1])
	if err != nil {
		return fmt.Errorf("dial %s: %w", args[1], err)
	}
	defer netConn.Close()

	p := platform.New(platform.Platform(cfg.Demo.PlatformName), "0.1", netConn, netConn, args[0], logger)

	games := demoGames(cfg.Demo.GameCount)
	p.HandleAuthentication(platform.AuthenticationHandler{
		Authenticate: func(context.Context, map[string]any) (any, error) {
			return platform.Authentication{UserID: "demo-user", UserName: "Demo User"}, nil
		},
	})
	p.HandleOwnedGames(func(context.Context) ([]platform.Game, error) {
		return games, nil
	})
	p.HandleAchievements(platform.ImportSource[[]platform.Achievement]{
		Get: func(_ context.Context, gameID string, _ any) ([]platform.Achievement, error) {
			return []platform.Achievement{
				{AchievementID: gameID + "-first-steps", UnlockTime: time.Now().Unix()},
			}, nil
		},
	})
	p.HandleGameTimes(platform.ImportSource[platform.GameTime]{
		Get: func(_ context.Context, gameID string, _ any) (platform.GameTime, error) {
			minutes := int64(90)
			last := time.Now().Unix()
			return platform.GameTime{GameID: gameID, TimePlayed: &minutes, LastPlayedTime: &last}, nil
		},
	})

	defer func() {
		p.Close()
		p.WaitClosed()
	}()
	p.Run(context.Background())
	return nil
}

func demoGames(count int) []platform.Game {
	games := make([]platform.Game, 0, count)
	for i := 0; i < count; i++ {
		id := strconv.Itoa(i + 1)
		games = append(games, platform.Game{
			GameID:      id,
			GameTitle:   "Demo Game " + id,
			LicenseInfo: platform.LicenseInfo{LicenseType: platform.LicenseSinglePurchase},
		})
	}
	return games
}
