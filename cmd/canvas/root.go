package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/config"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

var (
	brand  = color.New(color.FgHiBlue, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Strategy canvas server and tools",
		Long: brand.Sprint("canvas") + " serves interactive strategy canvases\n" +
			subtle.Sprint("Nodes, connections and gestures over HTTP, websockets and the terminal"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newServeCmd(flags),
		newTUICmd(flags),
		newRenderCmd(flags),
		newTokenCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and prints any error in color.
func Execute() error {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", bad.Sprint("error:"), err)
		return err
	}
	return nil
}

// load reads the config file and applies the --log-level override.
func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewJSONLogger(w, level), nil
}
