package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/tui"
)

func newTUICmd(flags *rootFlags) *cobra.Command {
	var (
		user    string
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "tui [canvas-id]",
		Short: "Edit a canvas in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := "main"
			if len(args) == 1 {
				id = args[0]
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			// the terminal belongs to the UI, so logs go to a file or nowhere
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			logger, err := newLogger(w, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStorage(ctx, cfg.Persistence)
			if err != nil {
				return err
			}
			defer st.close()

			opts := canvasOptions(cfg, st, nil, nil, logger)
			c, err := canvas.New(id, opts)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Open(ctx); err != nil {
				return err
			}
			if user != "" {
				if _, err := c.RestoreView(ctx, user); err != nil {
					logger.Warn("failed to restore view", logging.Error(err))
				}
			}

			err = tui.Run(ctx, c, tui.Options{UserID: user})
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Persistence.CloseTimeout)
			defer cancel()
			if ferr := c.Flush(flushCtx); ferr != nil {
				logger.Error("unsaved changes", logging.Count(c.Pending()), logging.Error(ferr))
				err = errors.Join(err, ferr)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "restore and save this user's view")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append JSON logs to this file")
	return cmd
}
