package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "ticod",
		Short:         "CRHoy news pipeline services",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSyncCommand(&configFlag))
	rootCmd.AddCommand(newDownloadCommand(&configFlag))
	rootCmd.AddCommand(newNotifyCommand(&configFlag))

	return rootCmd
}
