package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pilgrimwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeTemp(t, `
server:
  url: http://sim.local:8000
  namespace: /ws/demo
dashboard:
  action_log_capacity: 20
  pulse_duration: 500ms
connection:
  reconnect: false
logging:
  level: debug
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.URL != "http://sim.local:8000" {
		t.Errorf("unexpected server url %q", cfg.Server.URL)
	}
	if cfg.Dashboard.ActionLogCapacity != 20 || cfg.Dashboard.PulseDuration != 500*time.Millisecond {
		t.Errorf("unexpected dashboard config: %+v", cfg.Dashboard)
	}
	// Untouched fields keep their defaults.
	if cfg.Dashboard.MarkerCapacity != 100 || cfg.Dashboard.FlashDuration != 1200*time.Millisecond {
		t.Errorf("defaults not preserved: %+v", cfg.Dashboard)
	}
	if cfg.Connection.Reconnect {
		t.Errorf("expected reconnect disabled")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Dashboard.ReconcileEvery != 10 || cfg.Server.Namespace != "/ws/demo" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"bad level":     "logging:\n  level: loud\n",
		"bad capacity":  "dashboard:\n  action_log_capacity: 0\n",
		"unknown field": "dashboard:\n  colour: red\n",
		"bad duration":  "dashboard:\n  pulse_duration: soon\n",
		"bad url":       "server:\n  url: ftp://sim\n",
	}
	for name, body := range cases {
		path := writeTemp(t, body)
		if _, err := Load(path, ""); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PILGRIMWATCH_SERVER_URL", "https://remote.example:443")
	t.Setenv("PILGRIMWATCH_LOG_LEVEL", "warn")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.URL != "https://remote.example:443" || cfg.Logging.Level != "warn" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Server, cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Connection.BackoffMax = time.Millisecond
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "backoff") {
		t.Fatalf("expected backoff error, got %v", err)
	}
	cfg = Default()
	cfg.Server.Namespace = "ws/demo"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected namespace error")
	}
}

func TestValidateWithCue_CustomSchema(t *testing.T) {
	schema := filepath.Join(t.TempDir(), "schema.cue")
	if err := os.WriteFile(schema, []byte("#Config: {server?: {url?: =~\"^https://\"}}\n"), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	path := writeTemp(t, "server:\n  url: http://plain\n")
	if err := ValidateWithCue(path, schema); err == nil {
		t.Fatalf("expected custom schema to reject http url")
	}
}
