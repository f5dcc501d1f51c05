package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"briefcast/internal/capture"
	"briefcast/internal/logging"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload a previously captured session to the backend",
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

			uploader := capture.NewUploader(apiBase, cfg.Paths.CredentialsDir, logging.NewNop())
			if err := uploader.Upload(cmd.Context(), userID, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session uploaded; local copy removed.")
			return nil
		},
	}
}

func newDisconnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Revoke the session stored on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backendClient()
			if err != nil {
				return err
			}
			revoked, err := backend.Revoke(cmd.Context())
			if err != nil {
				return err
			}
			if revoked {
				fmt.Fprintln(cmd.OutOrStdout(), "Disconnected. The backend no longer holds a session.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored session to revoke.")
			}
			return nil
		},
	}
}
