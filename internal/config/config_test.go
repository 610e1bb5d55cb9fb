package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if c.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", c.Port)
	}
	if c.TurnDuration() != 10*time.Second {
		t.Fatalf("expected 10s turns, got %v", c.TurnDuration())
	}
	if c.EnergyRegen != 10 {
		t.Fatalf("expected regen 10, got %d", c.EnergyRegen)
	}
	if c.AdminEnabled() {
		t.Fatal("admin routes should be off without credentials")
	}
	if c.SessionIdleTTL != 0 {
		t.Fatalf("expected reaper disabled, got %v", c.SessionIdleTTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TURN_DURATION_MS", "2500")
	t.Setenv("SESSION_IDLE_TTL", "15m")
	t.Setenv("ADMIN_USER", "root")
	t.Setenv("ADMIN_PASS", "hunter2")
	t.Setenv("EXPORT_ENABLED", "true")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if c.TurnDuration() != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s turns, got %v", c.TurnDuration())
	}
	if c.SessionIdleTTL != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %v", c.SessionIdleTTL)
	}
	if !c.AdminEnabled() || !c.ExportEnabled {
		t.Fatal("expected admin and export enabled")
	}
}

func TestFromEnvErrors(t *testing.T) {
	t.Setenv("TURN_DURATION_MS", "soon")
	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}

	t.Setenv("TURN_DURATION_MS", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for zero turn duration")
	}
}
