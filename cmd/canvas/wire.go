package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dd0wney/strategy-canvas/pkg/auth"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/config"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/metrics"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/persistence/pgstore"
	"github.com/dd0wney/strategy-canvas/pkg/persistence/s3store"
	"github.com/dd0wney/strategy-canvas/pkg/persistence/sqlitestore"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
	canvastls "github.com/dd0wney/strategy-canvas/pkg/tls"
)

// storage is the configured entity store with its view preferences.
type storage struct {
	driver   string
	entities persistence.EntityStore
	views    persistence.ViewStore
	ping     func(ctx context.Context) error // nil when the driver has none
	close    func() error
}

func openStorage(ctx context.Context, cfg config.PersistenceConfig) (*storage, error) {
	st := &storage{driver: cfg.Driver, close: func() error { return nil }}
	switch cfg.Driver {
	case "memory", "":
		mem := persistence.NewMemoryStore()
		st.entities, st.views = mem, mem
	case "sqlite":
		s, err := sqlitestore.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st.entities, st.views, st.close = s, s, s.Close
	case "postgres":
		s, err := pgstore.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st.entities, st.views, st.ping, st.close = s, s, s.Ping, s.Close
	case "s3":
		s, err := s3store.New(ctx, s3store.Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		st.entities, st.views = s, s
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
	}
	return st, nil
}

func canvasSettings(cfg *config.Config) canvas.Settings {
	s := canvas.DefaultSettings()
	c := cfg.Canvas
	s.SnapRadius = c.SnapRadius
	s.MinScale = c.MinScale
	s.MaxScale = c.MaxScale
	s.DefaultWidth = c.DefaultWidth
	s.DefaultHeight = c.DefaultHeight
	s.SpawnJitter = c.SpawnJitter
	s.HandleSize = c.HandleSize
	s.AnchorHitRadius = c.AnchorHitRadius
	s.Width = float64(cfg.Server.RenderWidth)
	s.Height = float64(cfg.Server.RenderHeight)
	return s
}

func backoff(cfg config.PersistenceConfig) persistence.Backoff {
	b := persistence.DefaultBackoff()
	b.Base = cfg.BackoffBase
	b.Max = cfg.BackoffMax
	b.Attempts = cfg.MaxAttempts
	return b
}

func canvasOptions(cfg *config.Config, st *storage, bus *pubsub.PubSub, reg *metrics.Registry, logger logging.Logger) canvas.Options {
	return canvas.Options{
		Settings:     canvasSettings(cfg),
		Store:        st.entities,
		Views:        st.views,
		Bus:          bus,
		Metrics:      reg,
		Logger:       logger,
		Backoff:      backoff(cfg.Persistence),
		Timeout:      cfg.Persistence.CallTimeout,
		CloseTimeout: cfg.Persistence.CloseTimeout,
	}
}

// loadTLS returns nil when TLS is off.
func loadTLS(cfg config.TLSConfig, logger logging.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	tlsCfg, err := canvastls.Load(canvastls.Options{
		CertFile:     cfg.CertFile,
		KeyFile:      cfg.KeyFile,
		AutoGenerate: cfg.AutoGenerate,
		Hosts:        cfg.Hosts,
		ValidFor:     cfg.ValidFor,
	})
	if err != nil {
		return nil, err
	}
	if cfg.CertFile == "" {
		logger.Warn("serving with a self-signed certificate", logging.Any("hosts", cfg.Hosts))
	}
	if exp, err := canvastls.Expiry(tlsCfg); err == nil && time.Until(exp) < 30*24*time.Hour {
		logger.Warn("TLS certificate expires soon", logging.String("not_after", exp.Format(time.RFC3339)))
	}
	return tlsCfg, nil
}

// tokenValidator verifies with the current secret first, then with each
// previous secret so tokens issued before a rotation stay valid until expiry.
func tokenValidator(cfg config.AuthConfig) (auth.TokenValidator, error) {
	current, err := auth.NewJWTManager(cfg.Secret, cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	if len(cfg.PreviousSecrets) == 0 {
		return current, nil
	}
	chain := auth.NewCompositeTokenValidator(current)
	for i, secret := range cfg.PreviousSecrets {
		prev, err := auth.NewJWTManager(secret, cfg.Issuer, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("auth.previous_secrets[%d]: %w", i, err)
		}
		chain.AddValidator(prev)
	}
	return chain, nil
}
