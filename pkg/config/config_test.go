package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestReadFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "yaml",
			file: "canvas.yaml",
			body: `
canvas:
  snap_radius: 40
persistence:
  driver: sqlite
  dsn: /tmp/canvas.db
  call_timeout: 2s
server:
  addr: ":9090"
log:
  level: debug
`,
		},
		{
			name: "toml",
			file: "canvas.toml",
			body: `
[canvas]
snap_radius = 40.0

[persistence]
driver = "sqlite"
dsn = "/tmp/canvas.db"
call_timeout = "2s"

[server]
addr = ":9090"

[log]
level = "debug"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.ReadFile(writeFile(t, tt.file, tt.body)); err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if cfg.Canvas.SnapRadius != 40 {
				t.Errorf("SnapRadius = %v", cfg.Canvas.SnapRadius)
			}
			if cfg.Persistence.Driver != "sqlite" || cfg.Persistence.DSN != "/tmp/canvas.db" {
				t.Errorf("persistence = %+v", cfg.Persistence)
			}
			if cfg.Persistence.CallTimeout != 2*time.Second {
				t.Errorf("CallTimeout = %v", cfg.Persistence.CallTimeout)
			}
			if cfg.Server.Addr != ":9090" {
				t.Errorf("Addr = %q", cfg.Server.Addr)
			}
			// untouched keys keep their defaults
			if cfg.Canvas.SpawnJitter != 300 {
				t.Errorf("SpawnJitter = %v", cfg.Canvas.SpawnJitter)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestReadFileUnsupported(t *testing.T) {
	err := Default().ReadFile(writeFile(t, "canvas.ini", "x=1"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"CANVAS_SERVER_ADDR":              ":7000",
		"CANVAS_PERSISTENCE_DRIVER":       "postgres",
		"CANVAS_PERSISTENCE_DSN":          "postgres://localhost/canvas",
		"CANVAS_BROADCAST_PEERS":          "tcp://a:7450, tcp://b:7450,",
		"CANVAS_AUTH_ENABLED":             "true",
		"CANVAS_AUTH_TOKEN_TTL":           "1h",
		"CANVAS_PERSISTENCE_MAX_ATTEMPTS": "3",
		"CANVAS_SERVER_TLS_ENABLED":       "1",
		"CANVAS_SERVER_TLS_HOSTS":         "canvas.local",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Persistence.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Persistence.Driver)
	}
	if len(cfg.Broadcast.Peers) != 2 || cfg.Broadcast.Peers[1] != "tcp://b:7450" {
		t.Errorf("Peers = %v", cfg.Broadcast.Peers)
	}
	if !cfg.Auth.Enabled || cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Persistence.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", cfg.Persistence.MaxAttempts)
	}
	if !cfg.Server.TLS.Enabled || len(cfg.Server.TLS.Hosts) != 1 || cfg.Server.TLS.Hosts[0] != "canvas.local" {
		t.Errorf("TLS = %+v", cfg.Server.TLS)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	err := Default().ApplyEnv(env(map[string]string{"CANVAS_AUTH_ENABLED": "maybe"}))
	if err == nil || !strings.Contains(err.Error(), "CANVAS_AUTH_ENABLED") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Persistence.Driver = "mongo" }, "Driver"},
		{"postgres without dsn", func(c *Config) { c.Persistence.Driver = "postgres" }, "DSN"},
		{"s3 without bucket", func(c *Config) { c.Persistence.Driver = "s3" }, "Bucket"},
		{"tls cert without key", func(c *Config) { c.Server.TLS.CertFile = "server.crt" }, "KeyFile"},
		{"min scale below half", func(c *Config) { c.Canvas.MinScale = 0.1 }, "MinScale"},
		{"max scale above two", func(c *Config) { c.Canvas.MaxScale = 8 }, "MaxScale"},
		{"inverted scale bounds", func(c *Config) { c.Canvas.MinScale, c.Canvas.MaxScale = 1.5, 1 }, "MaxScale"},
		{"default width below minimum", func(c *Config) { c.Canvas.DefaultWidth = 100 }, "DefaultWidth"},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }, "Secret"},
		{"short secret", func(c *Config) { c.Auth.Enabled, c.Auth.Secret = true, "short" }, "Secret"},
		{"short previous secret", func(c *Config) { c.Auth.PreviousSecrets = []string{"old"} }, "PreviousSecrets"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"zero attempts", func(c *Config) { c.Persistence.MaxAttempts = 0 }, "MaxAttempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
