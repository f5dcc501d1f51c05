package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var apiFlag string
	var tokenFlag string
	var userFlag string

	ctx := newCommandContext(&configFlag, &apiFlag, &tokenFlag, &userFlag)

	rootCmd := &cobra.Command{
		Use:           "briefcast",
		Short:         "Briefcast CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Backend API base URL")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token for the backend API")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "User identifier for capture operations")

	rootCmd.AddCommand(newConnectCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newDisconnectCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newGenerationsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newAgentCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
