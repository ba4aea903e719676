package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"conveyor/internal/envelope"
	"conveyor/internal/orders"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var queueName string
	cmd := &cobra.Command{
		Use:   "send [order.json]",
		Short: "Send an order envelope to the intake queue",
		Long: `Send reads an order document from the given file (or stdin when omitted)
and enqueues it for validation. The document is checked for well-formed JSON
but not validated; validation happens in the pipeline.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read order file: %w", err)
				}
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			if _, err := orders.Decode(body); err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			destination := queueName
			if destination == "" {
				destination = cfg.Queues.Intake
			}

			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			env := envelope.New(body)
			if err := broker.Send(cmd.Context(), destination, env); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent envelope %s to %s.\n", env.ID, destination)
			return nil
		},
	}
	cmd.Flags().StringVar(&queueName, "queue", "", "Destination queue (defaults to the intake queue)")
	return cmd
}
