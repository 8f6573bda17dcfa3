// Package config loads canvas server settings from a YAML or TOML file,
// then applies CANVAS_* environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/validation"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// MinSecretLength is the shortest accepted token signing secret.
const MinSecretLength = 32

// Config is the full server configuration.
type Config struct {
	Canvas      CanvasConfig      `yaml:"canvas" toml:"canvas"`
	Persistence PersistenceConfig `yaml:"persistence" toml:"persistence"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Broadcast   BroadcastConfig   `yaml:"broadcast" toml:"broadcast"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// CanvasConfig tunes interaction behavior. Sizes are canvas units.
type CanvasConfig struct {
	SnapRadius      float64 `yaml:"snap_radius" toml:"snap_radius" validate:"gt=0"`
	MinScale        float64 `yaml:"min_scale" toml:"min_scale" validate:"gte=0.5,lte=2"`
	MaxScale        float64 `yaml:"max_scale" toml:"max_scale" validate:"gte=0.5,lte=2,gtefield=MinScale"`
	DefaultWidth    float64 `yaml:"default_width" toml:"default_width" validate:"gte=150"`
	DefaultHeight   float64 `yaml:"default_height" toml:"default_height" validate:"gte=100"`
	SpawnJitter     float64 `yaml:"spawn_jitter" toml:"spawn_jitter" validate:"gte=0"`
	HandleSize      float64 `yaml:"handle_size" toml:"handle_size" validate:"gt=0"`
	AnchorHitRadius float64 `yaml:"anchor_hit_radius" toml:"anchor_hit_radius" validate:"gt=0"`
}

// PersistenceConfig selects and tunes the entity store.
type PersistenceConfig struct {
	Driver       string        `yaml:"driver" toml:"driver" validate:"oneof=memory sqlite postgres s3"`
	DSN          string        `yaml:"dsn" toml:"dsn" validate:"required_if=Driver sqlite,required_if=Driver postgres"`
	S3           S3Config      `yaml:"s3" toml:"s3"`
	CallTimeout  time.Duration `yaml:"call_timeout" toml:"call_timeout" validate:"gt=0"`
	BackoffBase  time.Duration `yaml:"backoff_base" toml:"backoff_base" validate:"gt=0"`
	BackoffMax   time.Duration `yaml:"backoff_max" toml:"backoff_max" validate:"gtefield=BackoffBase"`
	MaxAttempts  int           `yaml:"max_attempts" toml:"max_attempts" validate:"gte=1,lte=20"`
	CloseTimeout time.Duration `yaml:"close_timeout" toml:"close_timeout" validate:"gt=0"`
}

// S3Config is used when Driver is "s3".
type S3Config struct {
	Bucket          string `yaml:"bucket" toml:"bucket"`
	Prefix          string `yaml:"prefix" toml:"prefix"`
	Region          string `yaml:"region" toml:"region"`
	Endpoint        string `yaml:"endpoint" toml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"`
}

// ServerConfig configures the HTTP API. A zero WriteTimeout leaves
// websocket event streams open; each event write has its own deadline.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" toml:"allowed_origins"`
	RenderWidth     int           `yaml:"render_width" toml:"render_width" validate:"gt=0"`
	RenderHeight    int           `yaml:"render_height" toml:"render_height" validate:"gt=0"`
	TLS             TLSConfig     `yaml:"tls" toml:"tls"`
}

// TLSConfig serves the API over HTTPS. Without certificate files a
// self-signed certificate is generated when AutoGenerate is set.
type TLSConfig struct {
	Enabled      bool          `yaml:"enabled" toml:"enabled"`
	CertFile     string        `yaml:"cert_file" toml:"cert_file" validate:"required_with=KeyFile"`
	KeyFile      string        `yaml:"key_file" toml:"key_file" validate:"required_with=CertFile"`
	AutoGenerate bool          `yaml:"auto_generate" toml:"auto_generate"`
	Hosts        []string      `yaml:"hosts" toml:"hosts"`
	ValidFor     time.Duration `yaml:"valid_for" toml:"valid_for" validate:"gte=0"`
}

// AuthConfig configures bearer-token sessions. PreviousSecrets still verify
// tokens issued before a secret rotation.
type AuthConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	Secret          string        `yaml:"secret" toml:"secret" validate:"required_if=Enabled true"`
	PreviousSecrets []string      `yaml:"previous_secrets" toml:"previous_secrets" validate:"dive,min=32"`
	Issuer          string        `yaml:"issuer" toml:"issuer"`
	TokenTTL        time.Duration `yaml:"token_ttl" toml:"token_ttl" validate:"gt=0"`
}

// BroadcastConfig configures the replica event relay.
type BroadcastConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Listen  string   `yaml:"listen" toml:"listen" validate:"required_if=Enabled true"`
	Peers   []string `yaml:"peers" toml:"peers"`
	Node    string   `yaml:"node" toml:"node"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	host, _ := os.Hostname()
	return &Config{
		Canvas: CanvasConfig{
			SnapRadius:      anchor.DefaultSnapRadius,
			MinScale:        viewport.MinScale,
			MaxScale:        viewport.MaxScale,
			DefaultWidth:    250,
			DefaultHeight:   150,
			SpawnJitter:     300,
			HandleSize:      14,
			AnchorHitRadius: 8,
		},
		Persistence: PersistenceConfig{
			Driver:       "memory",
			CallTimeout:  5 * time.Second,
			BackoffBase:  100 * time.Millisecond,
			BackoffMax:   5 * time.Second,
			MaxAttempts:  5,
			CloseTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
			RenderWidth:     1280,
			RenderHeight:    800,
			TLS: TLSConfig{
				AutoGenerate: true,
				Hosts:        []string{"localhost", "127.0.0.1"},
				ValidFor:     365 * 24 * time.Hour,
			},
		},
		Auth: AuthConfig{
			Issuer:   "strategy-canvas",
			TokenTTL: 12 * time.Hour,
		},
		Broadcast: BroadcastConfig{
			Listen: "tcp://0.0.0.0:7450",
			Node:   host,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty) over the defaults, applies the process
// environment and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile decodes a .yaml, .yml or .toml file into c.
func (c *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", validation.FormatError(err))
	}
	if c.Persistence.Driver == "s3" && c.Persistence.S3.Bucket == "" {
		return errors.New("invalid config: Config.Persistence.S3.Bucket: field is required")
	}
	if c.Auth.Enabled && len(c.Auth.Secret) < MinSecretLength {
		return fmt.Errorf("invalid config: Config.Auth.Secret: must be at least %d characters", MinSecretLength)
	}
	return nil
}
