// Package config provides runtime configuration for arcbot.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for arcbot.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	// ControlPort: JWT-protected admin API
	ControlPort int `mapstructure:"control_port"`
	// DataPort: gateway heartbeats, cache reports and command invocations
	DataPort       int    `mapstructure:"data_port"`
	DBDriver       string `mapstructure:"db_driver"` // only "sqlite" for now
	DBPath         string `mapstructure:"db_path"`
	DBMaxOpenConns int    `mapstructure:"db_max_open_conns"`

	// ── Security ──────────────────────────────────────────────────────────────
	JWTSecret string `mapstructure:"jwt_secret"`
	// AgentToken: pre-shared key the gateway process sends on the data plane.
	AgentToken string `mapstructure:"agent_token"`
	AdminUser  string `mapstructure:"admin_user"`
	AdminPass  string `mapstructure:"admin_pass"`
	// OwnerIDs may run owner-only commands such as "test".
	OwnerIDs []uint64 `mapstructure:"owner_ids"`

	// ── Bot ───────────────────────────────────────────────────────────────────
	DefaultPrefix      string  `mapstructure:"default_prefix"`
	RESTBaseURL        string  `mapstructure:"rest_base_url"`
	RESTToken          string  `mapstructure:"rest_token"`
	RESTTimeoutSeconds int     `mapstructure:"rest_timeout_seconds"`
	ProjectURL         string  `mapstructure:"project_url"`
	ProjectDescription string  `mapstructure:"project_description"`
	CommandRateLimit   float64 `mapstructure:"command_rate_limit"` // invocations per second
	CommandRateBurst   int     `mapstructure:"command_rate_burst"`

	// ── Diagnostics ───────────────────────────────────────────────────────────
	SourceRoot           string   `mapstructure:"source_root"`
	ManifestPath         string   `mapstructure:"manifest_path"`
	CommandMarker        string   `mapstructure:"command_marker"`
	ScanWorkers          int      `mapstructure:"scan_workers"`
	HelperTotalCmd       []string `mapstructure:"helper_total_cmd"`
	HelperBaselineCmd    []string `mapstructure:"helper_baseline_cmd"`
	HelperTimeoutSeconds int      `mapstructure:"helper_timeout_seconds"`

	LogLevel string `mapstructure:"log_level"`
}

// RESTTimeout returns the REST client timeout.
func (c *Config) RESTTimeout() time.Duration {
	return time.Duration(c.RESTTimeoutSeconds) * time.Second
}

// HelperTimeout returns the per-helper execution bound.
func (c *Config) HelperTimeout() time.Duration {
	return time.Duration(c.HelperTimeoutSeconds) * time.Second
}

// Load reads config from file (./config.yaml or ~/.arcbot/config.yaml)
// and falls back to defaults. Environment variables with prefix ARCBOT_
// override file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.arcbot")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFile reads config from an explicit path, still applying defaults and
// environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("control_port", 6677)
	v.SetDefault("data_port", 1616)
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_path", "arcbot.db")
	v.SetDefault("db_max_open_conns", 4)

	// Security defaults. MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "arcbot-change-me-jwt")
	v.SetDefault("agent_token", "arcbot-secret-key-123")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")
	v.SetDefault("owner_ids", []uint64{})

	v.SetDefault("default_prefix", ".")
	v.SetDefault("rest_base_url", "http://127.0.0.1:1617/api")
	v.SetDefault("rest_token", "")
	v.SetDefault("rest_timeout_seconds", 10)
	v.SetDefault("project_url", "https://github.com/vesaa/arcbot")
	v.SetDefault("project_description", "General purpose chat bot written in Go.")
	v.SetDefault("command_rate_limit", 5.0)
	v.SetDefault("command_rate_burst", 10)

	v.SetDefault("source_root", "internal")
	v.SetDefault("manifest_path", "arcbot.toml")
	v.SetDefault("command_marker", "//arcbot:command")
	v.SetDefault("scan_workers", 8)
	self := selfExecutable()
	v.SetDefault("helper_total_cmd", []string{self, "mem", "total"})
	v.SetDefault("helper_baseline_cmd", []string{self, "mem", "base"})
	v.SetDefault("helper_timeout_seconds", 10)

	v.SetDefault("log_level", "info")

	// --- Environment Variables ---
	v.SetEnvPrefix("ARCBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.HelperTotalCmd) == 0 || len(c.HelperBaselineCmd) == 0 {
		return fmt.Errorf("helper_total_cmd and helper_baseline_cmd must name a program")
	}
	if c.ScanWorkers < 1 {
		return fmt.Errorf("scan_workers must be at least 1, got %d", c.ScanWorkers)
	}
	if c.HelperTimeoutSeconds < 1 {
		return fmt.Errorf("helper_timeout_seconds must be at least 1, got %d", c.HelperTimeoutSeconds)
	}
	return nil
}

// selfExecutable is the default helper program: the arcbot binary itself,
// which answers "mem total <pid>" and "mem base <pid>".
func selfExecutable() string {
	exe, err := os.Executable()
	if err != nil {
		return "arcbot"
	}
	return exe
}
