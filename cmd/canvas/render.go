package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/config"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/render"
)

type renderFlags struct {
	out    string
	format string
	fit    bool
	cols   int
	rows   int
}

func newRenderCmd(flags *rootFlags) *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <canvas-id>",
		Short: "Render a stored canvas as SVG or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if rf.out != "" && rf.out != "-" {
				f, err := os.Create(rf.out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := renderCanvas(cmd.Context(), cfg, args[0], rf, w); err != nil {
				return err
			}
			if rf.out != "" && rf.out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s\n", good.Sprint("✓"), rf.out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&rf.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&rf.format, "format", "f", "svg", "svg or text")
	cmd.Flags().BoolVar(&rf.fit, "fit", true, "fit the view to every node")
	cmd.Flags().IntVar(&rf.cols, "cols", 120, "text columns")
	cmd.Flags().IntVar(&rf.rows, "rows", 40, "text rows")
	return cmd
}

func renderCanvas(ctx context.Context, cfg *config.Config, id string, rf *renderFlags, w io.Writer) error {
	if rf.format != "svg" && rf.format != "text" {
		return fmt.Errorf("unknown format %q, want svg or text", rf.format)
	}
	logger, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg.Persistence)
	if err != nil {
		return err
	}
	defer st.close()

	opts := canvasOptions(cfg, st, nil, nil, logger.With(logging.Operation("render")))
	c, err := canvas.New(id, opts)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Open(ctx); err != nil {
		return err
	}

	if rf.format == "text" {
		surface := render.NewCellSurface(rf.cols, rf.rows, 0, 0)
		cols, rows := surface.Size()
		c.SetContainer(geometry.Point{}, float64(cols)*render.DefaultCellWidth, float64(rows)*render.DefaultCellHeight)
		if rf.fit {
			if _, err := c.FitToContent(0, 0); err != nil {
				return err
			}
		}
		if err := c.RenderCells(surface); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, surface.String())
		return err
	}

	if rf.fit {
		if _, err := c.FitToContent(0, 0); err != nil {
			return err
		}
	}
	body, _, err := c.RenderSVG()
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
