package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm/tlform"
)

// Config is the CLI configuration file.
//
//	base_url: http://localhost:3000
//	timeout: 10s
//	max_body: 10485760
//	log_level: info
//	listen: :8080
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxBody  int64         `yaml:"max_body"`
	LogLevel string        `yaml:"log_level"`
	Listen   string        `yaml:"listen"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		MaxBody:  tlform.DefaultMaxBody,
		LogLevel: "warn",
		Listen:   ":8080",
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxBody <= 0 {
		return cfg, fmt.Errorf("config %s: max_body must be positive", path)
	}
	if cfg.Timeout < 0 {
		return cfg, fmt.Errorf("config %s: timeout must not be negative", path)
	}
	return cfg, nil
}
