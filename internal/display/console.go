// Package display renders records and statistics to a terminal. It is one
// consumer behind the engine's Sink interface; the engine makes no
// assumption about how records are presented.
package display

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"ethwatch/internal/decoder"
	"ethwatch/internal/model"
)

var (
	txTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")) // yellow
	blockTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))  // blue
	fieldStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))             // cyan
	creationStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("201"))            // magenta
	functionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))             // green
	rateStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	summaryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	separator = strings.Repeat("-", 40)
)

// Console writes the live stream to w, one bordered record at a time, in
// the arrival order the engine hands them over.
type Console struct {
	w io.Writer
}

func New(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Banner prints the startup header before polling begins.
func (c *Console) Banner(endpoint string, rateLimit int, mode string) {
	fmt.Fprintln(c.w, headerStyle.Render("ETHWATCH - Ethereum Mempool & Block Monitor"))
	fmt.Fprintln(c.w, headerStyle.Render(separator))
	fmt.Fprintf(c.w, "%s %s\n", fieldStyle.Render("Connecting to:"), endpoint)
	fmt.Fprintf(c.w, "%s %d queries/second\n", fieldStyle.Render("Rate limit:"), rateLimit)
	fmt.Fprintf(c.w, "%s %s\n", fieldStyle.Render("Mode:"), mode)
}

func (c *Console) OnTransaction(rec model.TransactionRecord) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", txTitleStyle.Render("Transaction:"), rec.Hash.Hex())
	fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("From:"), rec.From.Hex())
	if rec.To != nil {
		fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("To:"), rec.To.Hex())
	} else {
		fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("To:"), creationStyle.Render("Contract Creation"))
	}
	fmt.Fprintf(&b, "%s %s ETH\n", fieldStyle.Render("Value:"), weiToEth(rec.Value))
	fmt.Fprintf(&b, "%s %s Gwei\n", fieldStyle.Render("Gas Price:"), weiToGwei(rec.GasPrice))
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Gas Limit:"), rec.GasLimit)
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Type:"), rec.Type)
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Nonce:"), rec.Nonce)
	if len(rec.Input) > 0 {
		fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("Function:"), functionLabel(rec))
		fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("Input:"), truncateInput(rec.Input))
	}
	fmt.Fprintln(&b, txTitleStyle.Render(separator))

	fmt.Fprint(c.w, b.String())
}

func (c *Console) OnBlock(rec model.BlockRecord) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d\n", blockTitleStyle.Render("Block:"), rec.Number)
	fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("Hash:"), rec.Hash.Hex())
	fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("Parent Hash:"), rec.ParentHash.Hex())
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Timestamp:"), rec.Timestamp)
	fmt.Fprintf(&b, "%s %s\n", fieldStyle.Render("Miner:"), rec.Miner.Hex())
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Gas Used:"), rec.GasUsed)
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Gas Limit:"), rec.GasLimit)
	if rec.BaseFee != nil {
		fmt.Fprintf(&b, "%s %s Gwei\n", fieldStyle.Render("Base Fee:"), weiToGwei(rec.BaseFee))
	} else {
		fmt.Fprintf(&b, "%s N/A\n", fieldStyle.Render("Base Fee:"))
	}
	fmt.Fprintf(&b, "%s %d\n", fieldStyle.Render("Transactions:"), len(rec.Transactions))
	fmt.Fprintln(&b, blockTitleStyle.Render(separator))

	fmt.Fprint(c.w, b.String())
}

// OnStats prints the periodic rate line. Quiet until the first transaction
// arrives so a blocks-only session is not spammed with zero rates.
func (c *Console) OnStats(s model.StatsSnapshot) {
	if s.TransactionsMonitored == 0 {
		return
	}
	fmt.Fprintln(c.w, rateStyle.Render(
		fmt.Sprintf("Current query rate: %.2f queries/second", s.QueryRate)))
}

// OnShutdown prints the end-of-session totals.
func (c *Console) OnShutdown(s model.StatsSnapshot) {
	fmt.Fprintln(c.w, summaryStyle.Render("\nShutting down..."))

	elapsed := s.Uptime.Seconds()
	if elapsed <= 0 {
		return
	}
	fmt.Fprintf(c.w, "%s %d (%.2f per second)\n",
		summaryStyle.Render("Total transactions processed:"),
		s.TransactionsMonitored, float64(s.TransactionsMonitored)/elapsed)
	fmt.Fprintf(c.w, "%s %d (%.2f per second)\n",
		summaryStyle.Render("Total blocks processed:"),
		s.BlocksMonitored, float64(s.BlocksMonitored)/elapsed)
}

func functionLabel(rec model.TransactionRecord) string {
	if rec.Label != "" && rec.Label != decoder.LabelUnknown {
		return functionStyle.Render(rec.Label)
	}
	if sel, ok := decoder.Selector(rec.Input); ok {
		return fmt.Sprintf("Unknown (Selector: 0x%s)", sel)
	}
	return "Unknown"
}

func truncateInput(input []byte) string {
	s := hexutil.Encode(input)
	if len(s) <= 100 {
		return s
	}
	return fmt.Sprintf("%s..... (%d bytes)", s[:100], len(input))
}

func weiToEth(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

func weiToGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -9).String()
}
