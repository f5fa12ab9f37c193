// Package config loads and validates the bridge's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lob-bridge-go/infrastructure/logger"
)

// Config holds the main runtime configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Log       logger.Config   `yaml:"log"`
}

// EngineConfig describes the upstream connection and its reconnect schedule.
type EngineConfig struct {
	Addr          string  `yaml:"addr"`
	BackoffMinMs  int     `yaml:"backoffMinMs"`
	BackoffMaxMs  int     `yaml:"backoffMaxMs"`
	BackoffFactor float64 `yaml:"backoffFactor"`
}

// ServerConfig lists the downstream listen addresses.
type ServerConfig struct {
	WSAddr      string `yaml:"wsAddr"`
	HTTPAddr    string `yaml:"httpAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// BroadcastConfig tunes the fan-out path.
type BroadcastConfig struct {
	FPS            int `yaml:"fps"`
	Depth          int `yaml:"depth"`
	WriteTimeoutMs int `yaml:"writeTimeoutMs"`
}

// Default returns the configuration matching the original deployment:
// engine on 9000, websocket on 8080, dashboard on 8000, 30 FPS, 20 levels.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Addr:          "localhost:9000",
			BackoffMinMs:  1000,
			BackoffMaxMs:  30000,
			BackoffFactor: 1.5,
		},
		Server: ServerConfig{
			WSAddr:      ":8080",
			HTTPAddr:    ":8000",
			MetricsAddr: ":9100",
		},
		Broadcast: BroadcastConfig{
			FPS:            30,
			Depth:          20,
			WriteTimeoutMs: 2000,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads YAML config from path over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides the engine address from
// LOB_ENGINE_ADDR if present.
func LoadWithEnvOverrides(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("LOB_ENGINE_ADDR"); v != "" {
		cfg.Engine.Addr = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and sane.
func Validate(cfg Config) error {
	if cfg.Engine.Addr == "" {
		return errors.New("engine.addr is required")
	}
	if cfg.Engine.BackoffMinMs <= 0 {
		return errors.New("engine.backoffMinMs must be > 0")
	}
	if cfg.Engine.BackoffMaxMs < cfg.Engine.BackoffMinMs {
		return errors.New("engine.backoffMaxMs must be >= backoffMinMs")
	}
	if cfg.Engine.BackoffFactor <= 1 {
		return errors.New("engine.backoffFactor must be > 1")
	}
	if cfg.Server.WSAddr == "" {
		return errors.New("server.wsAddr is required")
	}
	if cfg.Broadcast.FPS <= 0 || cfg.Broadcast.FPS > 1000 {
		return fmt.Errorf("broadcast.fps must be in 1..1000, got %d", cfg.Broadcast.FPS)
	}
	if cfg.Broadcast.Depth <= 0 {
		return errors.New("broadcast.depth must be > 0")
	}
	if cfg.Broadcast.WriteTimeoutMs <= 0 {
		return errors.New("broadcast.writeTimeoutMs must be > 0")
	}
	return nil
}

// BackoffMin returns the initial reconnect delay.
func (e EngineConfig) BackoffMin() time.Duration {
	return time.Duration(e.BackoffMinMs) * time.Millisecond
}

// BackoffMax returns the reconnect delay cap.
func (e EngineConfig) BackoffMax() time.Duration {
	return time.Duration(e.BackoffMaxMs) * time.Millisecond
}

// Interval returns the broadcast tick period derived from FPS.
func (b BroadcastConfig) Interval() time.Duration {
	return time.Second / time.Duration(b.FPS)
}

// WriteTimeout returns the per-subscriber send deadline.
func (b BroadcastConfig) WriteTimeout() time.Duration {
	return time.Duration(b.WriteTimeoutMs) * time.Millisecond
}
