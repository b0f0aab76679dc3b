package cmd

import (
	"github.com/spf13/cobra"

	"ethwatch/pkg/config"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Monitor both pending transactions and new blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), config.ModeAll)
	},
}

func init() {
	rootCmd.AddCommand(allCmd)
}
