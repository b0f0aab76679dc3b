package cmd

import (
	"github.com/spf13/cobra"

	"ethwatch/pkg/config"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Monitor pending transactions",
	Long:  `Watch only the mempool: every newly broadcast transaction is printed once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), config.ModePending)
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}
