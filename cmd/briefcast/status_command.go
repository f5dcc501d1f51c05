package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status and the most recent generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backendClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			status, err := backend.CredentialStatus(cmd.Context())
			if err != nil {
				return err
			}
			if status.Authenticated {
				captured := ""
				if status.Credentials != nil {
					captured = " (captured " + status.Credentials.AuthenticatedAt.Local().Format(time.RFC1123) + ")"
				}
				fmt.Fprintf(out, "NotebookLM:   connected%s\n", captured)
			} else {
				fmt.Fprintln(out, "NotebookLM:   not connected; run briefcast connect")
			}

			list, err := backend.ListGenerations(cmd.Context(), 1)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "Generations:  none yet")
				return nil
			}
			latest := list[0]
			fmt.Fprintf(out, "Latest job:   %s (%s)\n", latest.ID, latest.Status)
			if latest.ErrorMessage != "" {
				fmt.Fprintf(out, "Last error:   %s\n", latest.ErrorMessage)
			}
			return nil
		},
	}
}
