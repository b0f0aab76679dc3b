package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List available public Ethereum endpoints",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available Public Ethereum Endpoints")
		fmt.Println("----------------------------------------")
		fmt.Println("Recommended Public Endpoints (No API Key Required):")
		fmt.Println("1. Ankr Public Endpoint:")
		fmt.Println("   https://rpc.ankr.com/eth (Higher rate limits, recommended)")
		fmt.Println("2. QuickNode Public Endpoint:")
		fmt.Println("   https://endpoints.omniatech.io/v1/eth/mainnet/public")
		fmt.Println("3. Cloudflare Ethereum Gateway:")
		fmt.Println("   https://cloudflare-eth.com (May have stricter rate limits)")
		fmt.Println()
		fmt.Println("Premium Endpoints (API Key Required):")
		fmt.Println("4. Infura (requires API key):")
		fmt.Println("   https://mainnet.infura.io/v3/YOUR-API-KEY")
		fmt.Println("5. Alchemy (requires API key):")
		fmt.Println("   https://eth-mainnet.g.alchemy.com/v2/YOUR-API-KEY")
		fmt.Println()
		fmt.Println("Rate Limit Information:")
		fmt.Println("- Public endpoints typically have rate limits (5-30 requests/second)")
		fmt.Println("- For higher throughput, consider using a premium service with an API key")
		fmt.Println("- Adjust the rate limit with the -r flag (e.g. -r 10 for 10 queries/second)")
		fmt.Println()
		fmt.Println("Example usage: ethwatch -e https://rpc.ankr.com/eth")
	},
}

func init() {
	rootCmd.AddCommand(endpointsCmd)
}
