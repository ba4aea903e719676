package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage broker queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-queue message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			stats, err := broker.QueueStats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All queues are empty.")
				return nil
			}

			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []string{
					s.Queue,
					strconv.FormatInt(s.Ready, 10),
					strconv.FormatInt(s.Leased, 10),
					strconv.FormatInt(s.Dead, 10),
					strconv.FormatInt(s.Total(), 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Queue", "Ready", "Leased", "Dead", "Total"}, rows, 2, 3, 4, 5))
			return nil
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "List messages on a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			messages, err := broker.List(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s is empty.\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(messages))
			for _, m := range messages {
				rows = append(rows, []string{
					strconv.FormatInt(m.ID, 10),
					m.EnvelopeID,
					m.Subject,
					m.State,
					strconv.Itoa(m.Attempts),
					m.EnqueuedAt.Local().Format(time.RFC3339),
					m.LastError,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"ID", "Envelope", "Subject", "State", "Attempts", "Enqueued", "Last Error"}, rows, 1, 5))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum messages to list (0 for all)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <queue>",
		Short: "Return dead messages on a queue to ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			revived, err := broker.RetryDead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revived %d dead messages on %s.\n", revived, args[0])
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [queue]",
		Short: "Remove messages from a queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify a queue or pass --all")
			}

			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			if all {
				cleared, err := broker.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d messages from all queues.\n", cleared)
				return nil
			}

			cleared, err := broker.Clear(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d messages from %s.\n", cleared, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every queue")
	return cmd
}
