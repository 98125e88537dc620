package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type tlsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	CertFile string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"KEY_FILE"`
}

type config struct {
	Addr          string        `yaml:"addr" env:"FRAMEDEX_ADDR"`
	DataDir       string        `yaml:"data_dir" env:"FRAMEDEX_DATA_DIR"`
	RulesFile     string        `yaml:"rules_file" env:"FRAMEDEX_RULES_FILE"`
	Preload       bool          `yaml:"preload" env:"FRAMEDEX_PRELOAD"`
	Watch         bool          `yaml:"watch" env:"FRAMEDEX_WATCH"`
	SourcesDB     string        `yaml:"sources_db" env:"FRAMEDEX_SOURCES_DB"`
	UpstreamURL   string        `yaml:"upstream_url" env:"FRAMEDEX_UPSTREAM_URL"`
	CheckInterval time.Duration `yaml:"check_interval" env:"FRAMEDEX_CHECK_INTERVAL"`
	TLS           tlsConfig     `yaml:"tls" envPrefix:"FRAMEDEX_TLS_"`
	LogLevel      string        `yaml:"log_level" env:"FRAMEDEX_LOG_LEVEL"`
	DefaultImage  string        `yaml:"default_image" env:"FRAMEDEX_DEFAULT_IMAGE"`
	ImageBaseURL  string        `yaml:"image_base_url" env:"FRAMEDEX_IMAGE_BASE_URL"`
}

func defaultConfig() config {
	return config{
		Addr:         ":8420",
		DataDir:      "data",
		Watch:        true,
		TLS:          tlsConfig{Enabled: true},
		LogLevel:     "info",
		DefaultImage: "no_image.png",
	}
}

// loadConfig reads the YAML file at path, then applies FRAMEDEX_* environment
// variables on top. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.level(); err != nil {
		return cfg, err
	}
	if cfg.CheckInterval < 0 {
		return cfg, fmt.Errorf("check_interval must not be negative")
	}
	return cfg, nil
}

func (c config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func (c config) logger() *slog.Logger {
	lvl, _ := c.level()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// sourcesDBPath defaults the ledger next to the data it describes.
func (c config) sourcesDBPath() string {
	if c.SourcesDB != "" {
		return c.SourcesDB
	}
	return c.DataDir + "/sources.db"
}
