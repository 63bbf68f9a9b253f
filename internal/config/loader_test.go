package config

import (
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"COORDINATOR_HTTP_PORT",
			"COORDINATOR_SQLITE_DSN",
			"COORDINATOR_ENFORCE_BLACKOUTS",
			"COORDINATOR_SHUTDOWN_TIMEOUT",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:coordinator.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.EnforceBlackouts {
			t.Fatal("blackout enforcement must default to advisory mode")
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("expected default shutdown timeout 10s, got %s", cfg.ShutdownTimeout)
		}
	})

	t.Run("parses provided values", func(t *testing.T) {
		t.Setenv("COORDINATOR_HTTP_PORT", "9090")
		t.Setenv("COORDINATOR_SQLITE_DSN", "file:/tmp/coordinator.db")
		t.Setenv("COORDINATOR_ENFORCE_BLACKOUTS", "true")
		t.Setenv("COORDINATOR_SHUTDOWN_TIMEOUT", "30s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/coordinator.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if !cfg.EnforceBlackouts {
			t.Fatal("expected blackout enforcement to be enabled")
		}
		if cfg.ShutdownTimeout != 30*time.Second {
			t.Fatalf("expected shutdown timeout 30s, got %s", cfg.ShutdownTimeout)
		}
	})

	t.Run("errors when values are invalid", func(t *testing.T) {
		t.Setenv("COORDINATOR_HTTP_PORT", "-1")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for a negative port")
		}
	})
}
