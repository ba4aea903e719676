package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"conveyor/internal/orders"
)

func newOrdersCommand(ctx *commandContext) *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and manage the order document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	ordersCmd.AddCommand(newOrdersAddCommand(ctx))
	ordersCmd.AddCommand(newOrdersGetCommand(ctx))
	ordersCmd.AddCommand(newOrdersListCommand(ctx))
	return ordersCmd
}

func newOrdersAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <order.json>",
		Short: "Store an order document from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read order file: %w", err)
			}
			order, err := orders.Decode(body)
			if err != nil {
				return err
			}

			store, err := ctx.openDocstore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), order); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored order %s.\n", order.OrderID)
			return nil
		},
	}
}

func newOrdersGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <order-id>",
		Short: "Print a stored order document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openDocstore()
			if err != nil {
				return err
			}
			defer store.Close()

			order, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pretty, err := json.MarshalIndent(order, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
			return nil
		},
	}
}

func newOrdersListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openDocstore()
			if err != nil {
				return err
			}
			defer store.Close()

			listed, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(listed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders stored.")
				return nil
			}

			rows := make([][]string, 0, len(listed))
			for _, order := range listed {
				rows = append(rows, []string{
					order.OrderID,
					string(order.Status),
					strconv.Itoa(len(order.ProductDetails)),
					strconv.FormatFloat(order.OrderTotal, 'f', 2, 64),
					order.OrderDate,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Order", "Status", "Items", "Total", "Date"}, rows, 3, 4))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum orders to list (0 for all)")
	return cmd
}
