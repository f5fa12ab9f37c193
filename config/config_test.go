package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  addr: "engine:9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Addr != "engine:9000" {
		t.Fatalf("engine addr not applied: %s", cfg.Engine.Addr)
	}
	if cfg.Broadcast.FPS != 30 || cfg.Broadcast.Depth != 20 {
		t.Fatalf("defaults not applied: %+v", cfg.Broadcast)
	}
	if cfg.Engine.BackoffFactor != 1.5 {
		t.Fatalf("default backoff factor not applied: %v", cfg.Engine.BackoffFactor)
	}
}

func TestLoadRejectsBadFPS(t *testing.T) {
	path := writeConfig(t, `
broadcast:
  fps: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for fps=0")
	}
}

func TestLoadRejectsBadBackoff(t *testing.T) {
	path := writeConfig(t, `
engine:
  addr: "engine:9000"
  backoffMinMs: 5000
  backoffMaxMs: 1000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for max < min backoff")
	}
}

func TestEnvOverridesEngineAddr(t *testing.T) {
	path := writeConfig(t, `
engine:
  addr: "engine:9000"
`)
	t.Setenv("LOB_ENGINE_ADDR", "other:9001")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Addr != "other:9001" {
		t.Fatalf("env override not applied: %s", cfg.Engine.Addr)
	}
}

func TestIntervalFromFPS(t *testing.T) {
	cfg := Default()
	if got := cfg.Broadcast.Interval().Milliseconds(); got < 33 || got > 34 {
		t.Fatalf("expected ~33ms tick for 30 FPS, got %dms", got)
	}
}
