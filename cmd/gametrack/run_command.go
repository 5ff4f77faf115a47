package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gametrack/internal/daemon"
	"gametrack/internal/logging"
)

const logBufferCapacity = 4096

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the gametrack daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			hub := logging.NewStreamHub(logBufferCapacity)
			logger, err := logging.NewFromConfig(cfg, hub)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return daemon.Run(signalCtx, cfg, logger, hub)
		},
	}
}
