package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"

account:
  host: "grid.example.org"
  zone: "labZone"
  user: "alice"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Account.Port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, cfg.Account.Port)
	}
	if cfg.Account.Host != "grid.example.org" {
		t.Errorf("Expected host from file, got %q", cfg.Account.Host)
	}
	if cfg.Session.DialTimeout != 10*time.Second {
		t.Errorf("Expected default dial_timeout 10s, got %v", cfg.Session.DialTimeout)
	}
	if cfg.Gridsim.Server.Zone != "labZone" {
		t.Errorf("Expected simulated zone to follow account zone, got %q", cfg.Gridsim.Server.Zone)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Point at a missing file so the user's ~/.config/dittogrid is never read
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Export.Type != "file" {
		t.Errorf("Expected default export type 'file', got %q", cfg.Export.Type)
	}
	if cfg.Account.Zone != DefaultZone {
		t.Errorf("Expected default zone %q, got %q", DefaultZone, cfg.Account.Zone)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("account: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected read error, got: %v", err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
export:
  type: "ftp"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for unknown export type")
	}
	if !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("Expected validation failure, got: %v", err)
	}
}

func TestLoad_TypeSpecificSections(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
export:
  type: "s3"
  compression: "zstd"
  s3:
    bucket: "catalog-dumps"
    key: "tempZone.ndjson.zst"
    region: "eu-west-1"

gridsim:
  fixture: "/etc/dittogrid/grid.yaml"
  store:
    type: "badger"
    badger:
      db_path: "/var/lib/dittogrid"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Export.S3["bucket"] != "catalog-dumps" {
		t.Errorf("Expected s3 bucket from file, got %v", cfg.Export.S3["bucket"])
	}
	if cfg.Gridsim.Fixture != "/etc/dittogrid/grid.yaml" {
		t.Errorf("Expected fixture from file, got %q", cfg.Gridsim.Fixture)
	}
	if _, ok := cfg.Gridsim.Store.Badger["in_memory"]; ok {
		t.Error("Expected in_memory to stay unset when db_path is configured")
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	want := filepath.Join(xdg, "dittogrid", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestGetConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	want := filepath.Join(home, ".config", "dittogrid")
	if got := GetConfigDir(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOGRID_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOGRID_ACCOUNT_PORT", "2247")
	t.Setenv("DITTOGRID_ACCOUNT_USER", "bob")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

account:
  port: 1247
  user: "alice"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Account.Port != 2247 {
		t.Errorf("Expected port 2247 from env var, got %d", cfg.Account.Port)
	}
	if cfg.Account.User != "bob" {
		t.Errorf("Expected user 'bob' from env var, got %q", cfg.Account.User)
	}
}
