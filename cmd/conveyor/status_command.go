package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"conveyor/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and queue depths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			docs, err := ctx.openDocstore()
			if err != nil {
				return err
			}
			defer docs.Close()

			results := preflight.Run(cmd.Context(), cfg, broker, docs)
			checkRows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "FAIL"
				if result.Passed {
					state = "OK"
				}
				checkRows = append(checkRows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Check", "State", "Detail"}, checkRows))

			stats, err := broker.QueueStats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All queues are empty.")
				return nil
			}
			queueRows := make([][]string, 0, len(stats))
			for _, s := range stats {
				queueRows = append(queueRows, []string{
					s.Queue,
					strconv.FormatInt(s.Ready, 10),
					strconv.FormatInt(s.Leased, 10),
					strconv.FormatInt(s.Dead, 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Queue", "Ready", "Leased", "Dead"}, queueRows, 2, 3, 4))
			return nil
		},
	}
}
