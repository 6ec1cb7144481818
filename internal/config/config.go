// Package config loads server settings from defaults, an optional YAML file
// and environment variables.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogConfig drives obslog.Init.
type LogConfig struct {
	Level   string `mapstructure:"log_level"`
	Format  string `mapstructure:"log_format"` // legacy, console or json
	Console bool   `mapstructure:"log_to_console"`
	ToFile  bool   `mapstructure:"log_to_file"`
	File    string `mapstructure:"log_file"`
	Caller  bool   `mapstructure:"log_caller"`
}

// AppConfig is the full server configuration. Keys are flat so that each one
// maps directly onto an upper-case environment variable (LISTEN_ADDR,
// REDIS_URL, ...).
type AppConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	HTTPAddr    string `mapstructure:"http_addr"`
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	// ReadTimeout bounds how long a connection may stay silent. Zero disables it.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	RedisURL       string `mapstructure:"redis_url"`
	RedisNamespace string `mapstructure:"redis_namespace"`

	EndOnCheckmate     bool   `mapstructure:"end_on_checkmate"`
	NotifyOpponentLeft bool   `mapstructure:"notify_opponent_left"`
	MessagesDir        string `mapstructure:"messages_dir"`

	Log LogConfig `mapstructure:",squash"`
}

// TLSEnabled reports whether both halves of a key pair are configured.
func (c AppConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Validate checks every setting and reports all problems at once.
func (c AppConfig) Validate() error {
	var errs []string
	if err := validateAddr("listen_addr", c.ListenAddr, true); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAddr("http_addr", c.HTTPAddr, false); err != nil {
		errs = append(errs, err.Error())
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, "tls_cert_file and tls_key_file must be set together")
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, "read_timeout must not be negative")
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, "write_timeout must not be negative")
	}
	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		errs = append(errs, fmt.Sprintf("redis_url must use redis:// or rediss://, got %q", c.RedisURL))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log_level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"legacy": true, "console": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log_format must be one of [legacy, console, json], got %q", c.Log.Format))
	}
	if c.Log.ToFile && strings.TrimSpace(c.Log.File) == "" {
		errs = append(errs, "log_file must be set when log_to_file is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAddr(key, addr string, required bool) error {
	if addr == "" {
		if required {
			return fmt.Errorf("%s must not be empty", key)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s must be host:port, got %q", key, addr)
	}
	return nil
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a config from an already populated viper instance.
func LoadFromViper(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":60000")
	v.SetDefault("http_addr", "")
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
	v.SetDefault("read_timeout", "0s")
	v.SetDefault("write_timeout", "10s")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_namespace", "chess")

	v.SetDefault("end_on_checkmate", true)
	v.SetDefault("notify_opponent_left", true)
	v.SetDefault("messages_dir", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "legacy")
	v.SetDefault("log_to_console", true)
	v.SetDefault("log_to_file", false)
	v.SetDefault("log_file", "logs/chess-server.log")
	v.SetDefault("log_caller", false)
}
