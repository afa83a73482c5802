package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type config struct {
	Bind     string `toml:"bind"`
	LogLevel string `toml:"log_level"`

	Demo demoConfig `toml:"demo"`
}

type demoConfig struct {
	PlatformName string `toml:"platform_name"`
	GameCount    int    `toml:"game_count"`
}

func defaultConfig() config {
	return config{
		Bind:     "127.0.0.1:9345",
		LogLevel: "info",
		Demo: demoConfig{
			PlatformName: "test",
			GameCount:    3,
		},
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".config", "spillhost", "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
