package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"briefcast/internal/capture"
	"briefcast/internal/capture/agent"
	"briefcast/internal/logging"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the local capture agent HTTP server",
		Long: "Runs the capture agent that desktop frontends drive over HTTP to open " +
			"a login browser, capture the session, and hand it to the backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			controller := capture.NewController(cfg, capture.NewPlaywrightBrowser(), logger)
			defer controller.Shutdown()
			uploader := capture.NewUploader(cfg.Agent.APIBase, cfg.Paths.CredentialsDir, logger)

			srv := agent.New(cfg, controller, uploader, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Capture agent listening on %s\n", srv.Addr())
			<-runCtx.Done()
			return nil
		},
	}
}
