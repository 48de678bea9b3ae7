package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyissuer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "status.log", cfg.StatusLogPath)
	assert.Equal(t, "ks-", cfg.CredentialPrefix)
	assert.False(t, cfg.TLS.Enabled())
	assert.False(t, cfg.Syslog.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
listen_addr: "127.0.0.1:9090"
confirm_timeout: 10s
db_path: /var/lib/keyissuer/status.db
syslog:
  enabled: true
tls:
  cert_file: /etc/keyissuer/cert.pem
  key_file: /etc/keyissuer/key.pem
log_level: debug
`)

	t.Setenv(EnvConfirmTimeout, "2s")
	t.Setenv(EnvCredentialPrefix, "tk-")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.ConfirmTimeout, "env overrides file")
	assert.Equal(t, "/var/lib/keyissuer/status.db", cfg.DBPath)
	assert.True(t, cfg.Syslog.Enabled)
	assert.True(t, cfg.TLS.Enabled())
	assert.Equal(t, "tk-", cfg.CredentialPrefix)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "listen_adr: \":1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv(EnvConfirmTimeout, "soon")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvConfirmTimeout)

	t.Setenv(EnvConfirmTimeout, "")
	t.Setenv(EnvSyslogEnabled, "maybe")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSyslogEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad listen addr", func(c *Config) { c.ListenAddr = "8080" }, "listen_addr"},
		{"port out of range", func(c *Config) { c.ListenAddr = ":70000" }, "listen_addr"},
		{"zero timeout", func(c *Config) { c.ConfirmTimeout = 0 }, "confirm_timeout"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "server timeouts"},
		{"empty log path", func(c *Config) { c.StatusLogPath = "" }, "status_log_path"},
		{"empty stats path", func(c *Config) { c.StatsPath = "" }, "stats_path"},
		{"empty prefix", func(c *Config) { c.CredentialPrefix = "" }, "credential_prefix"},
		{"half tls", func(c *Config) { c.TLS.CertFile = "cert.pem" }, "tls"},
		{"redirect without host", func(c *Config) { c.RedirectAddr = ":80" }, "public_host"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("redirect with host", func(t *testing.T) {
		cfg := Default()
		cfg.RedirectAddr = ":80"
		cfg.PublicHost = "stats.example.com"
		assert.NoError(t, cfg.Validate())
	})
}
