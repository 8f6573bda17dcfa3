package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/api"
	"github.com/dd0wney/strategy-canvas/pkg/auth"
	"github.com/dd0wney/strategy-canvas/pkg/broadcast"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/config"
	"github.com/dd0wney/strategy-canvas/pkg/health"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/metrics"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
	"github.com/dd0wney/strategy-canvas/pkg/server"
)

const systemMetricsInterval = 15 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the canvas HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg, flags)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, flags *rootFlags) error {
	logger, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	tlsCfg, err := loadTLS(cfg.Server.TLS, logger)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg.Persistence)
	if err != nil {
		return err
	}
	logger.Info("entity store ready", logging.String("driver", st.driver))

	reg := metrics.DefaultRegistry()
	bus := pubsub.New(pubsub.WithDropHandler(func(m pubsub.Message) {
		logger.Warn("event dropped for slow subscriber", logging.String("topic", m.Topic))
	}))
	manager := canvas.NewManager(canvasOptions(cfg, st, bus, reg, logger))

	var validator auth.TokenValidator
	if cfg.Auth.Enabled {
		validator, err = tokenValidator(cfg.Auth)
		if err != nil {
			_ = manager.Close()
			_ = st.close()
			return err
		}
	} else {
		logger.Warn("authentication disabled, every route is open")
	}

	checker := health.NewChecker()
	checker.Register("persistence_backlog", health.BacklogCheck(manager.Pending, api.DefaultBacklogThreshold))
	checker.Register("memory", health.MemoryCheck(nil))
	if st.ping != nil {
		checker.Register("entity_store", health.PingCheck(st.driver, st.ping))
	}

	apiServer, err := api.NewServer(api.Options{
		Manager: manager,
		Bus:     bus,
		Metrics: reg,
		Health:  checker,
		Logger:  logger,
		Auth:    validator,
		Config: api.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			TLSEnabled:     tlsCfg != nil,
		},
	})
	if err != nil {
		_ = manager.Close()
		_ = st.close()
		return err
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler(), server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TLSConfig:       tlsCfg,
		Logger:          logger,
	})

	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	go updateSystemMetrics(bgCtx, reg)

	relay, err := startBroadcast(bgCtx, cfg.Broadcast, bus, reg, logger)
	if err != nil {
		stopBackground()
		_ = relay.Close()
		_ = manager.Close()
		_ = st.close()
		return err
	}

	gs.SetConfigReloadFunc(func() error {
		next, err := flags.load()
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(next.Log.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	})

	gs.OnShutdown(func(context.Context) error {
		stopBackground()
		return relay.Close()
	})
	gs.OnShutdown(func(context.Context) error { return manager.Close() })
	gs.OnShutdown(func(context.Context) error {
		bus.Shutdown()
		return st.close()
	})

	return gs.Run(ctx)
}

func updateSystemMetrics(ctx context.Context, reg *metrics.Registry) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()
	reg.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.UpdateSystemMetrics()
		}
	}
}

// relay owns the broadcast sockets of one server.
type relay struct {
	publisher   *broadcast.Publisher
	subscribers []*broadcast.Subscriber
}

// startBroadcast publishes local canvas events and republishes peers'
// events on bus. The returned relay is never nil; on error, cancel ctx and
// close it.
func startBroadcast(ctx context.Context, cfg config.BroadcastConfig, bus *pubsub.PubSub, reg *metrics.Registry, logger logging.Logger) (*relay, error) {
	r := &relay{}
	if !cfg.Enabled {
		return r, nil
	}

	pub, err := broadcast.NewPublisher(cfg.Listen, logger, reg)
	if err != nil {
		return r, err
	}
	r.publisher = pub
	if err := pub.Relay(ctx, bus, "canvas.*"); err != nil {
		return r, err
	}

	for _, peer := range cfg.Peers {
		s, err := broadcast.NewSubscriber(peer, "canvas.", cfg.Node, logger)
		if err != nil {
			return r, err
		}
		s.Forward(bus)
		r.subscribers = append(r.subscribers, s)
	}
	logger.Info("broadcast relay started",
		logging.String("listen", cfg.Listen),
		logging.Count(len(cfg.Peers)))
	return r, nil
}

// Close stops every subscriber, then the publisher. The relay context must
// already be cancelled.
func (r *relay) Close() error {
	var errs []error
	for _, s := range r.subscribers {
		errs = append(errs, s.Close())
	}
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	return errors.Join(errs...)
}
