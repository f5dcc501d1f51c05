package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"briefcast/internal/capture"
	"briefcast/internal/logging"
)

func newConnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Open a browser to sign in to NotebookLM and hand the session to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			userID, err := ctx.userID()
			if err != nil {
				return err
			}
			token, err := ctx.token()
			if err != nil {
				return err
			}
			apiBase, err := ctx.apiBase()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			controller := capture.NewController(cfg, capture.NewPlaywrightBrowser(), logging.NewNop())
			defer controller.Shutdown()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Opening browser...")
			started, err := controller.Start(runCtx, userID)
			if err != nil {
				return fmt.Errorf("open capture browser: %w", err)
			}

			fmt.Fprintln(out, "Sign in to NotebookLM in the browser window.")
			fmt.Fprintln(out, "Press Enter here once you are logged in (Ctrl+C to abort).")
			if err := waitForEnter(runCtx); err != nil {
				_ = controller.Cancel(userID, started.Handle)
				return err
			}

			localPath, err := controller.Confirm(runCtx, userID, started.Handle)
			if err != nil {
				return fmt.Errorf("capture session: %w", err)
			}
			fmt.Fprintf(out, "Session captured to %s\n", localPath)

			uploader := capture.NewUploader(apiBase, cfg.Paths.CredentialsDir, logging.NewNop())
			if err := uploader.Upload(runCtx, userID, token); err != nil {
				fmt.Fprintln(out, "Upload failed; the session is kept locally. Retry with: briefcast upload")
				return err
			}
			fmt.Fprintln(out, "Connected. The backend can now generate briefings for you.")
			return nil
		},
	}
}

// waitForEnter blocks until the user presses Enter or the context is
// cancelled.
func waitForEnter(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		_, err := reader.ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
