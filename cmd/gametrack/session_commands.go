package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gametrack/internal/api"
	"gametrack/internal/enrich"
)

var errStreamDone = errors.New("stream done")

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	var region string
	var wait bool
	startCmd := &cobra.Command{
		Use:   "start <rows.json|rows.csv|->",
		Short: "Submit library rows and start an enrichment session",
		Long: "Submit library rows and start an enrichment session.\n\n" +
			"Rows are read from a JSON array, a JSON object with a \"rows\" field, or a CSV\n" +
			"file with id, identity_id, title, appid, and platform columns. Use - for stdin.\n" +
			"Starting replaces any session the daemon already holds.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				snap, err := client.Start(cmd.Context(), api.StartRequest{Rows: rows, Region: region})
				if err != nil {
					return err
				}
				if wait {
					snap, err = followSession(cmd, client, snap.SessionID, !ctx.jsonOutput())
					if err != nil {
						return err
					}
				}
				return printSnapshot(cmd, ctx, snap)
			})
		},
	}
	startCmd.Flags().StringVar(&region, "region", "", "Store region for prices (defaults to enrichment.default_region)")
	startCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow progress until the session finishes")

	pauseCmd := sessionControlCommand(ctx, "pause", "Pause the running session", (*api.Client).Pause)
	resumeCmd := sessionControlCommand(ctx, "resume", "Resume a paused or restored session", (*api.Client).Resume)
	cancelCmd := sessionControlCommand(ctx, "cancel", "Drop the session and its saved progress", (*api.Client).Cancel)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current session and its rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				snap, err := client.Session(cmd.Context())
				if err != nil {
					return err
				}
				return printSnapshot(cmd, ctx, snap)
			})
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream session progress until it finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				snap, err := client.Session(cmd.Context())
				if err != nil {
					return err
				}
				if snap.SessionID == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No enrichment session")
					return nil
				}
				snap, err = followSession(cmd, client, snap.SessionID, !ctx.jsonOutput())
				if err != nil {
					return err
				}
				return printSnapshot(cmd, ctx, snap)
			})
		},
	}

	return []*cobra.Command{startCmd, pauseCmd, resumeCmd, cancelCmd, showCmd, watchCmd}
}

type controlFunc func(*api.Client, context.Context) (enrich.Snapshot, error)

func sessionControlCommand(ctx *commandContext, use, short string, control controlFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				snap, err := control(client, cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), snap)
				}
				fmt.Fprintln(cmd.OutOrStdout(), progressLine(snap, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}

// followSession prints a progress line whenever the session's visible state
// changes and returns the final snapshot. It stops early when the session is
// replaced, dropped, or left paused.
func followSession(cmd *cobra.Command, client *api.Client, sessionID string, verbose bool) (enrich.Snapshot, error) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	var last enrich.Snapshot
	var lastLine string
	err := client.Events(cmd.Context(), func(snap enrich.Snapshot) error {
		if snap.SessionID != sessionID {
			return errStreamDone
		}
		last = snap
		if verbose {
			if line := progressLine(snap, colorize); line != lastLine {
				fmt.Fprintln(out, line)
				lastLine = line
			}
		}
		if snap.Finished || snap.Paused {
			return errStreamDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStreamDone) {
		return last, err
	}
	return last, nil
}

func printSnapshot(cmd *cobra.Command, ctx *commandContext, snap enrich.Snapshot) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), snap)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if snap.SessionID == "" {
		fmt.Fprintln(out, "No enrichment session")
		if snap.Message != "" {
			fmt.Fprintln(out, snap.Message)
		}
		return nil
	}

	for _, line := range renderSectionHeader("Session", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderField("ID", snap.SessionID))
	fmt.Fprintln(out, renderField("Phase", paint(string(snap.Phase), phaseColor(snap.Phase), colorize)))
	fmt.Fprintln(out, renderField("Progress", fmt.Sprintf("%d/%d rows", snap.CompletedCount, snap.TotalRows)))
	if snap.Region != "" {
		fmt.Fprintln(out, renderField("Region", strings.ToUpper(snap.Region)))
	}
	fmt.Fprintln(out, renderField("Started", formatTimestamp(snap.StartedAt)))
	fmt.Fprintln(out, renderField("Updated", formatTimestamp(snap.LastUpdated)))
	fmt.Fprintln(out, renderField("Live providers", yesNo(snap.Capable)))
	if snap.Message != "" {
		fmt.Fprintln(out, renderField("Message", snap.Message))
	}
	fmt.Fprintln(out)
	writeRowTable(out, snap.Queue, colorize)
	return nil
}

func writeRowTable(out io.Writer, rows []enrich.Row, colorize bool) {
	if len(rows) == 0 {
		return
	}
	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		body = append(body, []string{
			row.Title,
			paint(string(row.Status), statusColor(row.Status), colorize),
			string(row.Stage),
			formatPrice(row.Price, row.CurrencyCode),
			formatHours(row.TTB, row.TTBSource),
			formatScore(row.CriticScore, row.CriticSource),
			row.Message,
		})
	}
	fmt.Fprint(out, renderTable([]column{
		leftColumn("Title"),
		leftColumn("Status"),
		leftColumn("Stage"),
		rightColumn("Price"),
		rightColumn("Playtime"),
		rightColumn("Critic"),
		leftColumn("Message"),
	}, body, ""))
}
