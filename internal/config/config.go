// Package config loads the keyissuer runtime configuration from defaults, an
// optional YAML file and KEYISSUER_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gobeyondidentity/keyissuer/pkg/credential"
	"github.com/gobeyondidentity/keyissuer/pkg/pending"
)

const (
	EnvConfigFile       = "KEYISSUER_CONFIG"
	EnvListenAddr       = "KEYISSUER_LISTEN_ADDR"
	EnvConfirmTimeout   = "KEYISSUER_CONFIRM_TIMEOUT"
	EnvStatusLogPath    = "KEYISSUER_STATUS_LOG"
	EnvDBPath           = "KEYISSUER_DB_PATH"
	EnvSyslogEnabled    = "KEYISSUER_SYSLOG_ENABLED"
	EnvSyslogSocket     = "KEYISSUER_SYSLOG_SOCKET"
	EnvStatsPath        = "KEYISSUER_STATS_PATH"
	EnvStaticDir        = "KEYISSUER_STATIC_DIR"
	EnvTLSCertFile      = "KEYISSUER_TLS_CERT_FILE"
	EnvTLSKeyFile       = "KEYISSUER_TLS_KEY_FILE"
	EnvRedirectAddr     = "KEYISSUER_REDIRECT_ADDR"
	EnvPublicHost       = "KEYISSUER_PUBLIC_HOST"
	EnvCredentialPrefix = "KEYISSUER_CREDENTIAL_PREFIX"
	EnvLogLevel         = "KEYISSUER_LOG_LEVEL"
	EnvLogFormat        = "KEYISSUER_LOG_FORMAT"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// TLSConfig holds TLS settings. TLS is enabled when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether TLS serving is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// SyslogConfig controls the syslog mirror of status records.
type SyslogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

// Config holds the service configuration.
type Config struct {
	ListenAddr       string        `yaml:"listen_addr"`
	ConfirmTimeout   time.Duration `yaml:"confirm_timeout"`
	StatusLogPath    string        `yaml:"status_log_path"`
	DBPath           string        `yaml:"db_path"`
	Syslog           SyslogConfig  `yaml:"syslog"`
	StatsPath        string        `yaml:"stats_path"`
	StaticDir        string        `yaml:"static_dir"`
	TLS              TLSConfig     `yaml:"tls"`
	RedirectAddr     string        `yaml:"redirect_addr"`
	PublicHost       string        `yaml:"public_host"`
	CredentialPrefix string        `yaml:"credential_prefix"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		ConfirmTimeout:   pending.DefaultTimeout,
		StatusLogPath:    "status.log",
		StatsPath:        "stats.json",
		CredentialPrefix: credential.DefaultPrefix,
		ReadTimeout:      15 * time.Second,
		WriteTimeout:     15 * time.Second,
		IdleTimeout:      60 * time.Second,
		LogLevel:         "info",
		LogFormat:        LogFormatText,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes as io.EOF and means no overrides.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %q: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	stringEnv(EnvListenAddr, &c.ListenAddr)
	stringEnv(EnvStatusLogPath, &c.StatusLogPath)
	stringEnv(EnvDBPath, &c.DBPath)
	stringEnv(EnvSyslogSocket, &c.Syslog.SocketPath)
	stringEnv(EnvStatsPath, &c.StatsPath)
	stringEnv(EnvStaticDir, &c.StaticDir)
	stringEnv(EnvTLSCertFile, &c.TLS.CertFile)
	stringEnv(EnvTLSKeyFile, &c.TLS.KeyFile)
	stringEnv(EnvRedirectAddr, &c.RedirectAddr)
	stringEnv(EnvPublicHost, &c.PublicHost)
	stringEnv(EnvCredentialPrefix, &c.CredentialPrefix)
	stringEnv(EnvLogLevel, &c.LogLevel)
	stringEnv(EnvLogFormat, &c.LogFormat)

	if err := durationEnv(EnvConfirmTimeout, &c.ConfirmTimeout); err != nil {
		return err
	}
	if err := boolEnv(EnvSyslogEnabled, &c.Syslog.Enabled); err != nil {
		return err
	}
	return nil
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if err := validateAddr(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen_addr: %w", err)
	}
	if c.RedirectAddr != "" {
		if err := validateAddr(c.RedirectAddr); err != nil {
			return fmt.Errorf("invalid redirect_addr: %w", err)
		}
		if c.PublicHost == "" {
			return fmt.Errorf("invalid public_host: required when redirect_addr is set")
		}
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("invalid confirm_timeout: must be > 0")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid server timeouts: must be > 0")
	}
	if c.StatusLogPath == "" {
		return fmt.Errorf("invalid status_log_path: must not be empty")
	}
	if c.StatsPath == "" {
		return fmt.Errorf("invalid stats_path: must not be empty")
	}
	if c.CredentialPrefix == "" {
		return fmt.Errorf("invalid credential_prefix: must not be empty")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("invalid tls: cert_file and key_file must be set together")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log_format: must be %q or %q", LogFormatText, LogFormatJSON)
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("port %q out of range", port)
	}
	return nil
}

func stringEnv(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func durationEnv(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func boolEnv(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
