package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TODOSHARE_STORE_DSN.
const EnvPrefix = "TODOSHARE"

// Client modes.
const (
	ClientModeRemote = "remote"
	ClientModeLocal  = "local"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// StoreConfig selects and locates the relational store.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is a file path for sqlite or a connection string for postgres.
	// An empty postgres DSN is looked up in the OS keyring.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// RealtimeConfig holds change feed settings.
type RealtimeConfig struct {
	// NATSURL enables the NATS bridge when set.
	NATSURL       string `mapstructure:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`

	// Buffer is the per-subscriber event buffer size.
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

// ClientConfig holds TUI client settings.
type ClientConfig struct {
	// Mode is "remote" (talk to a server) or "local" (open the store directly).
	Mode      string `mapstructure:"mode" yaml:"mode"`
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
}

// RegistryConfig tunes optimistic write handling.
type RegistryConfig struct {
	RollbackOnFailure bool `mapstructure:"rollback_on_failure" yaml:"rollback_on_failure"`
}

// LogConfig mirrors logging.Config so it can be loaded from YAML.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Output     string `mapstructure:"output" yaml:"output"`
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns ~/.config/todoshare/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todoshare", "config.yaml")
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "share", "todoshare", name)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", defaultDataPath("todoshare.db"))
	v.SetDefault("realtime.nats_url", "")
	v.SetDefault("realtime.subject_prefix", "todoshare")
	v.SetDefault("realtime.buffer", 64)
	v.SetDefault("client.mode", ClientModeRemote)
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("registry.rollback_on_failure", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", defaultDataPath("todoshare.log"))
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

// LoadConfig reads configuration from the YAML file at path. A missing file
// yields the defaults. Variables from a .env file in the working directory
// are loaded first, and TODOSHARE_* environment variables override both.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Client.Mode {
	case ClientModeRemote, ClientModeLocal:
	default:
		return fmt.Errorf("unknown client mode %q", c.Client.Mode)
	}
	if c.Realtime.Buffer <= 0 {
		return fmt.Errorf("realtime.buffer must be positive, got %d", c.Realtime.Buffer)
	}
	return nil
}

// SaveConfig writes cfg to a YAML file at path, creating parent
// directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("store", cfg.Store)
	v.Set("realtime", cfg.Realtime)
	v.Set("client", cfg.Client)
	v.Set("registry", cfg.Registry)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
