package cmd

import (
	"github.com/spf13/cobra"

	"ethwatch/pkg/config"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Monitor new blocks",
	Long:  `Watch only the chain tip: every newly finalized block is printed once, in height order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), config.ModeBlocks)
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}
