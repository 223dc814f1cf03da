package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Client.Mode != ClientModeRemote {
		t.Errorf("mode = %q, want remote", cfg.Client.Mode)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Realtime.Buffer != 64 {
		t.Errorf("buffer = %d", cfg.Realtime.Buffer)
	}
	if cfg.Registry.RollbackOnFailure {
		t.Error("rollback should default to false")
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  addr: \":9090\"\nclient:\n  mode: local\nregistry:\n  rollback_on_failure: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TODOSHARE_STORE_DSN", "/tmp/override.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Client.Mode != ClientModeLocal {
		t.Errorf("mode = %q", cfg.Client.Mode)
	}
	if !cfg.Registry.RollbackOnFailure {
		t.Error("rollback_on_failure not read from file")
	}
	if cfg.Store.DSN != "/tmp/override.db" {
		t.Errorf("dsn = %q, want env override", cfg.Store.DSN)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: oracle\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Client.ServerURL = "https://todo.example.com"
	cfg.Registry.RollbackOnFailure = true
	cfg.Realtime.NATSURL = "nats://localhost:4222"
	cfg.Log.Output = "file"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig after save: %v", err)
	}
	if got.Client.ServerURL != "https://todo.example.com" {
		t.Errorf("server_url = %q", got.Client.ServerURL)
	}
	if !got.Registry.RollbackOnFailure {
		t.Error("rollback_on_failure lost")
	}
	if got.Realtime.NATSURL != "nats://localhost:4222" {
		t.Errorf("nats_url = %q", got.Realtime.NATSURL)
	}
	if got.Log.Output != "file" {
		t.Errorf("log.output = %q", got.Log.Output)
	}
	if got.Realtime.Buffer != cfg.Realtime.Buffer || got.Store.Driver != cfg.Store.Driver {
		t.Errorf("defaults not preserved: %+v", got)
	}
}
