package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"conveyor/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "conveyor.log")

			opts := logs.TailOptions{
				Lines:        lines,
				Follow:       follow,
				PollInterval: 500 * time.Millisecond,
			}
			out := cmd.OutOrStdout()
			return logs.Tail(cmd.Context(), path, opts, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep following the log")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to show (0 for all)")
	return cmd
}
