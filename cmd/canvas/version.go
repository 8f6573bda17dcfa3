package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/api"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
				brand.Sprint("canvas"), api.Version, subtle.Sprintf("(%s %s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH))
		},
	}
}
