package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LDTT_AUTH_SECRET", strings.Repeat("s", 64))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.ValidDuration != 3600 || cfg.RefreshableDuration != 36000 {
		t.Fatalf("unexpected durations: %d/%d", cfg.ValidDuration, cfg.RefreshableDuration)
	}
	if cfg.Valid().Seconds() != 3600 {
		t.Fatalf("unexpected valid duration: %v", cfg.Valid())
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("LDTT_AUTH_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("LDTT_AUTH_SECRET", "too-short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestLoadRejectsRefreshShorterThanValid(t *testing.T) {
	setRequired(t)
	t.Setenv("LDTT_AUTH_VALID_DURATION", "3600")
	t.Setenv("LDTT_AUTH_REFRESHABLE_DURATION", "60")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for refresh window shorter than validity")
	}
}
