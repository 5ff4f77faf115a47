package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gametrack/internal/api"
	"gametrack/internal/enrich"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			reachable := err == nil
			if err != nil && !errors.Is(err, api.ErrDaemonUnreachable) {
				return wrapDaemonError(err, ctx.apiBind())
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), struct {
					Reachable bool `json:"reachable"`
					api.DaemonStatus
				}{Reachable: reachable, DaemonStatus: status})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if !reachable {
				fmt.Fprintln(out, renderField("Running", paint("no", ansiRed, colorize)))
				fmt.Fprintln(out, renderField("API", ctx.apiBind()))
				return nil
			}
			fmt.Fprintln(out, renderField("Running", paint(yesNo(status.Running), ansiGreen, colorize)))
			fmt.Fprintln(out, renderField("PID", strconv.Itoa(status.PID)))
			fmt.Fprintln(out, renderField("API", ctx.apiBind()))
			fmt.Fprintln(out, renderField("Database", status.DatabasePath))
			fmt.Fprintln(out, renderField("Lock", status.LockFilePath))
			bridge := paint("available", ansiGreen, colorize)
			if !status.BridgeAvailable {
				bridge = paint("unavailable", ansiYellow, colorize)
			}
			fmt.Fprintln(out, renderField("Bridge", bridge))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Session", colorize) {
				fmt.Fprintln(out, line)
			}
			if status.SessionID == "" {
				fmt.Fprintln(out, "No enrichment session")
				return nil
			}
			fmt.Fprintln(out, renderField("ID", status.SessionID))
			fmt.Fprintln(out, renderField("Phase", paint(string(status.Phase), phaseColor(status.Phase), colorize)))
			rows := make([][]string, 0, len(status.Counts))
			for _, st := range enrich.AllStatuses() {
				if n := status.Counts[string(st)]; n > 0 {
					rows = append(rows, []string{string(st), strconv.Itoa(n)})
				}
			}
			if len(rows) > 0 {
				fmt.Fprint(out, renderTable([]column{leftColumn("Status"), rightColumn("Rows")}, rows, ""))
			}
			return nil
		},
	}
}
