package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CANVAS_"

// ApplyEnv overrides c from the environment. Lists are comma-separated.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LOG_LEVEL", &c.Log.Level)

	e.str("SERVER_ADDR", &c.Server.Addr)
	e.list("SERVER_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	e.duration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.boolean("SERVER_TLS_ENABLED", &c.Server.TLS.Enabled)
	e.str("SERVER_TLS_CERT_FILE", &c.Server.TLS.CertFile)
	e.str("SERVER_TLS_KEY_FILE", &c.Server.TLS.KeyFile)
	e.list("SERVER_TLS_HOSTS", &c.Server.TLS.Hosts)

	e.str("PERSISTENCE_DRIVER", &c.Persistence.Driver)
	e.str("PERSISTENCE_DSN", &c.Persistence.DSN)
	e.duration("PERSISTENCE_CALL_TIMEOUT", &c.Persistence.CallTimeout)
	e.integer("PERSISTENCE_MAX_ATTEMPTS", &c.Persistence.MaxAttempts)
	e.str("S3_BUCKET", &c.Persistence.S3.Bucket)
	e.str("S3_PREFIX", &c.Persistence.S3.Prefix)
	e.str("S3_REGION", &c.Persistence.S3.Region)
	e.str("S3_ENDPOINT", &c.Persistence.S3.Endpoint)
	e.str("S3_ACCESS_KEY_ID", &c.Persistence.S3.AccessKeyID)
	e.str("S3_SECRET_ACCESS_KEY", &c.Persistence.S3.SecretAccessKey)

	e.boolean("AUTH_ENABLED", &c.Auth.Enabled)
	e.str("AUTH_SECRET", &c.Auth.Secret)
	e.list("AUTH_PREVIOUS_SECRETS", &c.Auth.PreviousSecrets)
	e.duration("AUTH_TOKEN_TTL", &c.Auth.TokenTTL)

	e.boolean("BROADCAST_ENABLED", &c.Broadcast.Enabled)
	e.str("BROADCAST_LISTEN", &c.Broadcast.Listen)
	e.list("BROADCAST_PEERS", &c.Broadcast.Peers)
	e.str("BROADCAST_NODE", &c.Broadcast.Node)

	e.float("CANVAS_SNAP_RADIUS", &c.Canvas.SnapRadius)
	e.float("CANVAS_SPAWN_JITTER", &c.Canvas.SpawnJitter)

	return e.err
}

// envReader records the first parse error and skips the rest.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key, v string, err error) {
	e.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
