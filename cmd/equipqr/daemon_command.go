package main

import (
	"github.com/spf13/cobra"

	"equipqr/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background sync daemon in the foreground",
		Long: "Run the background sync daemon. It owns the queue store, probes the backend, " +
			"syncs on reconnect and on schedule, and serves the local API other commands use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level for this run")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Human-friendly development logging")
	return cmd
}
