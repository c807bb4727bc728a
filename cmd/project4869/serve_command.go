package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled RSS checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.factory().CreateApp(ctx.logPath())
			if err != nil {
				return err
			}

			runErr := application.Start(cmd.Context())
			if runErr != nil {
				ctx.logger.Error("App stopped with error", zap.Error(runErr))
			}

			if err := application.Stop(); err != nil {
				return err
			}
			return runErr
		},
	}
}
