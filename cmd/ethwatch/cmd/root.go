package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ethwatch/pkg/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ethwatch",
	Short: "Ethereum mempool and block monitor",
	Long: `ethwatch continuously polls an Ethereum JSON-RPC endpoint under a
configurable rate ceiling, streams newly observed pending transactions and
finalized blocks to the terminal, labels transaction payloads by function
selector, and tracks session statistics.

Without a subcommand it watches both streams, same as 'ethwatch all'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), "")
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringP("endpoint", "e", "", "Ethereum node endpoint URL")
	rootCmd.PersistentFlags().IntP("rate-limit", "r", 0, "maximum queries per second")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")

	// Flags outrank file and environment values; unset flags fall through.
	_ = viper.BindPFlag("endpoint.url", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("endpoint.rate_limit", rootCmd.PersistentFlags().Lookup("rate-limit"))
	_ = viper.BindPFlag("app.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	config.Init(cfgFile)
}
