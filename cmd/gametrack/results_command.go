package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gametrack/internal/api"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List resolved library metadata, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				items, err := client.Results(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), api.ResultsResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No resolved metadata yet")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.Title,
						formatPrice(item.Price, item.CurrencyCode),
						formatHours(item.TTB, item.TTBSource),
						formatScore(item.CriticScore, item.CriticSource),
						item.UpdatedAt,
					})
				}
				fmt.Fprint(out, renderTable([]column{
					leftColumn("Title"),
					rightColumn("Price"),
					rightColumn("Playtime"),
					rightColumn("Critic"),
					leftColumn("Updated"),
				}, rows, fmt.Sprintf("%d entries", len(items))))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	return cmd
}
