package falken

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "falken.json")
	body := `{
		"api_key": "k-123",
		"project_id": "p-1",
		"api_call_timeout_milliseconds": 5000,
		"service": {"environment": "dev", "connection": {"address": "edge:443"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIKey != "k-123" || cfg.ProjectID != "p-1" || cfg.APICallTimeoutMilliseconds != 5000 {
		t.Fatalf("config %+v", cfg)
	}
	if cfg.Service.Environment != "dev" || cfg.Service.Connection.Address != "edge:443" {
		t.Fatalf("service config %+v", cfg.Service)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{ProjectID: "p-1", APIKey: "k"}
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.APICallTimeoutMilliseconds != 30000 {
		t.Fatalf("timeout default %d", cfg.APICallTimeoutMilliseconds)
	}
	if cfg.Service.Environment != "prod" {
		t.Fatalf("environment default %q", cfg.Service.Environment)
	}
}

func TestConfigAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	cfg := Config{ProjectID: "p-1"}
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("api key %q", cfg.APIKey)
	}
}

func TestConfigRejectsMissingCredentials(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg := Config{ProjectID: "p-1"}
	if err := cfg.normalize(); !errors.Is(err, ErrAuth) {
		t.Fatalf("missing key: %v", err)
	}
	cfg = Config{APIKey: "k"}
	if err := cfg.normalize(); !errors.Is(err, ErrAuth) {
		t.Fatalf("missing project: %v", err)
	}
}
