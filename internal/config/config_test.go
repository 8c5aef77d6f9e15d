package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("default port: got %q", cfg.Port)
	}
	if cfg.MatchTimeout != 30*time.Second {
		t.Errorf("default match timeout: got %v", cfg.MatchTimeout)
	}
	if cfg.SettleDelay != 3*time.Second {
		t.Errorf("default settle delay: got %v", cfg.SettleDelay)
	}
	if cfg.DefaultMatchSize != 2 {
		t.Errorf("default match size: got %d", cfg.DefaultMatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MATCH_TIMEOUT_MS", "500")
	t.Setenv("SETTLE_DELAY_MS", "0")
	t.Setenv("DEFAULT_MATCH_SIZE", "4")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("port override: got %q", cfg.Port)
	}
	if cfg.MatchTimeout != 500*time.Millisecond {
		t.Errorf("match timeout override: got %v", cfg.MatchTimeout)
	}
	if cfg.SettleDelay != 0 {
		t.Errorf("settle delay should allow zero, got %v", cfg.SettleDelay)
	}
	if cfg.DefaultMatchSize != 4 {
		t.Errorf("match size override: got %d", cfg.DefaultMatchSize)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MATCH_TIMEOUT_MS", "not-a-number")
	t.Setenv("SETTLE_DELAY_MS", "-5")
	t.Setenv("DEFAULT_MATCH_SIZE", "0")

	cfg := Load()

	if cfg.MatchTimeout != 30*time.Second {
		t.Errorf("malformed timeout should fall back, got %v", cfg.MatchTimeout)
	}
	if cfg.SettleDelay != 3*time.Second {
		t.Errorf("negative delay should fall back, got %v", cfg.SettleDelay)
	}
	if cfg.DefaultMatchSize != 2 {
		t.Errorf("zero match size should fall back, got %d", cfg.DefaultMatchSize)
	}
}
