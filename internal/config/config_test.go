package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syncd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
stream:
  url: wss://stream.example.com/ws
  token: abc123
  auth_required: true
  reconnect_base_delay: 2s
  reconnect_max_delay: 30s
api:
  base_url: https://api.example.com
  timeout: 10s
serve:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stream.URL != "wss://stream.example.com/ws" {
		t.Errorf("Stream.URL = %q", cfg.Stream.URL)
	}
	if cfg.Stream.Token != "abc123" {
		t.Errorf("Stream.Token = %q", cfg.Stream.Token)
	}
	if !cfg.Stream.AuthRequired {
		t.Error("Stream.AuthRequired = false, want true")
	}
	if cfg.Stream.ReconnectBaseDelay != 2*time.Second {
		t.Errorf("ReconnectBaseDelay = %v, want 2s", cfg.Stream.ReconnectBaseDelay)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Serve.Port != 9090 {
		t.Errorf("Serve.Port = %d, want 9090", cfg.Serve.Port)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("STREAM_TOKEN", "tok-from-env")
	t.Setenv("DB_PASSWORD", "pg-secret")

	path := writeConfig(t, `
stream:
  url: wss://stream.example.com/ws
  token: ${STREAM_TOKEN}
journal:
  enabled: true
  database:
    host: localhost
    password: ${DB_PASSWORD}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.Token != "tok-from-env" {
		t.Errorf("Stream.Token = %q, want expanded env value", cfg.Stream.Token)
	}
	if cfg.Journal.Database.Password != "pg-secret" {
		t.Errorf("Database.Password = %q, want expanded env value", cfg.Journal.Database.Password)
	}
}

func TestLoadWithDefaults_FillsZeroFields(t *testing.T) {
	path := writeConfig(t, `
stream:
  url: wss://stream.example.com/ws
api:
  base_url: https://api.example.com
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Stream.ReconnectBaseDelay != time.Second {
		t.Errorf("ReconnectBaseDelay = %v, want 1s", cfg.Stream.ReconnectBaseDelay)
	}
	if cfg.Stream.ReconnectMaxDelay != 15*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 15s", cfg.Stream.ReconnectMaxDelay)
	}
	if cfg.Stream.BootstrapTimeout != 10*time.Second {
		t.Errorf("BootstrapTimeout = %v, want 10s", cfg.Stream.BootstrapTimeout)
	}
	if cfg.Stream.QueueSize != 1024 {
		t.Errorf("QueueSize = %d, want 1024", cfg.Stream.QueueSize)
	}
	if cfg.Stream.TokenParam != "token" {
		t.Errorf("TokenParam = %q, want %q", cfg.Stream.TokenParam, "token")
	}
	if cfg.Journal.BatchSize != 100 {
		t.Errorf("Journal.BatchSize = %d, want 100", cfg.Journal.BatchSize)
	}
	if cfg.Journal.Database.SSLMode != "prefer" {
		t.Errorf("SSLMode = %q, want %q", cfg.Journal.Database.SSLMode, "prefer")
	}
	if cfg.Serve.Port != 8080 {
		t.Errorf("Serve.Port = %d, want 8080", cfg.Serve.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/syncd.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Stream.URL = "wss://stream.example.com/ws"
		cfg.API.BaseURL = "https://api.example.com"
		cfg.applyDefaults()
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing stream url", func(c *Config) { c.Stream.URL = "" }, "stream.url"},
		{"wrong stream scheme", func(c *Config) { c.Stream.URL = "https://stream.example.com" }, "ws://"},
		{"missing api base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"wrong api scheme", func(c *Config) { c.API.BaseURL = "ftp://api.example.com" }, "http://"},
		{"base delay above max", func(c *Config) {
			c.Stream.ReconnectBaseDelay = 30 * time.Second
			c.Stream.ReconnectMaxDelay = 15 * time.Second
		}, "reconnect_base_delay"},
		{"journal enabled without host", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Database.Port = 5432
			c.Journal.Database.Name = "signals"
			c.Journal.Database.User = "syncd"
		}, "journal.database.host"},
		{"journal port out of range", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Database.Host = "localhost"
			c.Journal.Database.Port = 70000
		}, "out of range"},
		{"missing stream token is allowed", func(c *Config) {
			c.Stream.AuthRequired = true
			c.Stream.Token = ""
		}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}
