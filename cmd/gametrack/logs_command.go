package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"gametrack/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool
	var component string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				// --json emits one event per line.
				var lines *json.Encoder
				if ctx.jsonOutput() {
					lines = json.NewEncoder(out)
				}
				var since uint64
				wait := false
				for {
					page, err := client.Logs(cmd.Context(), since, limit, wait)
					if err != nil {
						if errors.Is(err, context.Canceled) {
							return nil
						}
						return err
					}
					for _, evt := range page.Events {
						if component != "" && !strings.EqualFold(component, evt.Component) {
							continue
						}
						if lines != nil {
							if err := lines.Encode(evt); err != nil {
								return err
							}
							continue
						}
						writeLogLine(out, evt, colorize)
					}
					if !follow {
						return nil
					}
					since = page.Next
					wait = true
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum events per fetch")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component")
	return cmd
}

func writeLogLine(out io.Writer, evt api.LogEvent, colorize bool) {
	level := strings.ToUpper(evt.Level)
	color := ""
	switch level {
	case "ERROR":
		color = ansiRed
	case "WARN", "WARNING":
		color = ansiYellow
	case "DEBUG":
		color = ansiDim
	}
	line := fmt.Sprintf("%s %-5s", evt.Timestamp.Local().Format("15:04:05.000"), paint(level, color, colorize))
	if evt.Component != "" {
		line += " [" + evt.Component + "]"
	}
	line += " " + evt.Message
	if len(evt.Fields) > 0 {
		keys := make([]string, 0, len(evt.Fields))
		for key := range evt.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			line += " " + key + "=" + evt.Fields[key]
		}
	}
	fmt.Fprintln(out, line)
}
