package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Port != "9400" {
		t.Errorf("Expected default port 9400, got %s", cfg.Port)
	}
	if cfg.DBPath != "/var/lib/deploytrace/ledger.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.DebugEnabled {
		t.Error("Expected debug disabled by default")
	}
	if cfg.CreateImageFingerprints {
		t.Error("Expected image auto-creation disabled by default")
	}
	if cfg.OTELEnabled {
		t.Error("Expected OTEL disabled by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.conf")

	configContent := `port=8080
db_path=/tmp/test.db
debug_enabled=true
create_image_fingerprints=yes
otel_enabled=true
otel_endpoint=collector:4317
otel_protocol=http
otel_push_interval=30s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected db path /tmp/test.db, got %s", cfg.DBPath)
	}
	if !cfg.DebugEnabled {
		t.Error("Expected debug enabled")
	}
	if !cfg.CreateImageFingerprints {
		t.Error("Expected image auto-creation enabled")
	}
	if !cfg.OTELEnabled || cfg.OTELEndpoint != "collector:4317" || cfg.OTELProtocol != "http" {
		t.Errorf("OTEL settings not loaded: %+v", cfg)
	}
	if cfg.OTELPushInterval != 30*time.Second {
		t.Errorf("Expected 30s push interval, got %v", cfg.OTELPushInterval)
	}
}

func TestLoadConfigWithEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.conf")

	configContent := `port=8080
db_path=/tmp/file.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("CREATE_IMAGE_FINGERPRINTS", "true")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment wins over the file
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090 from environment, got %s", cfg.Port)
	}
	// File value untouched by environment survives
	if cfg.DBPath != "/tmp/file.db" {
		t.Errorf("Expected db path from file, got %s", cfg.DBPath)
	}
	if !cfg.CreateImageFingerprints {
		t.Error("Expected image auto-creation from environment")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/server.conf")
	if err != nil {
		t.Fatalf("Missing file should not be an error: %v", err)
	}
	if cfg.Port != "9400" {
		t.Errorf("Expected default port, got %s", cfg.Port)
	}
}

func TestLoadAgentConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "agent.conf")

	configContent := `server_url=http://ledger:9400
environment=prod
resync_interval=5m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadAgentConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load agent config: %v", err)
	}

	if cfg.ServerURL != "http://ledger:9400" {
		t.Errorf("Expected server url from file, got %s", cfg.ServerURL)
	}
	if cfg.Environment != "prod" {
		t.Errorf("Expected environment prod, got %s", cfg.Environment)
	}
	if cfg.ResyncInterval != 5*time.Minute {
		t.Errorf("Expected 5m resync interval, got %v", cfg.ResyncInterval)
	}

	t.Setenv("ENVIRONMENT", "staging")
	cfg, err = LoadAgentConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to reload agent config: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Expected environment override, got %s", cfg.Environment)
	}
}
