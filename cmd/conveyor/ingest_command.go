package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"conveyor/internal/envelope"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a file and enqueue an ingestion event for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source file: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			objects, err := ctx.openObjectstore()
			if err != nil {
				return err
			}
			url, err := objects.Put(container, filepath.Base(args[0]), body, true)
			if err != nil {
				return err
			}

			env, err := envelope.NewStorageReference(url)
			if err != nil {
				return err
			}

			broker, err := ctx.openBroker()
			if err != nil {
				return err
			}
			defer broker.Close()

			if err := broker.Send(cmd.Context(), cfg.Queues.Ingestion, env); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s and sent event %s to %s.\n",
				url, env.ID, cfg.Queues.Ingestion)
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "inbox", "Object container for the uploaded file")
	return cmd
}
