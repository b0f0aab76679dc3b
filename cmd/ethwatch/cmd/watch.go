package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ethwatch/internal/display"
	"ethwatch/internal/engine"
	"ethwatch/internal/export"
	"ethwatch/internal/mirror"
	"ethwatch/internal/server"
	"ethwatch/pkg/config"
	"ethwatch/pkg/ethrpc"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/ratelimit"

	"go.uber.org/zap"
)

// runWatch is the shared body of the root command and the per-mode
// subcommands. modeOverride, when non-empty, wins over the configured mode.
func runWatch(ctx context.Context, modeOverride string) error {
	cfg := config.Global
	if modeOverride != "" {
		cfg.Endpoint.Mode = modeOverride
	}

	logger.Init(cfg.App.Env, cfg.App.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(cfg.Endpoint.RateLimit)

	client, err := ethrpc.Dial(ctx, cfg.Endpoint.URL, limiter, ethrpc.Options{
		CallTimeout: cfg.Endpoint.CallTimeout,
		DialTimeout: cfg.Endpoint.DialTimeout,
		Retry: ethrpc.RetryPolicy{
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
	})
	if err != nil {
		printConnectionHelp(err)
		return err
	}
	defer client.Close()

	console := display.New(os.Stdout)
	console.Banner(cfg.Endpoint.URL, cfg.Endpoint.RateLimit, cfg.Endpoint.Mode)

	mir := buildMirror(ctx, cfg)
	defer mir.Close()

	exp := buildExporter(cfg)
	if exp != nil {
		defer exp.Close()
	}

	opts := engine.Options{
		Mode:          cfg.Endpoint.Mode,
		TxBuffer:      cfg.Watch.TxBuffer,
		BlockBuffer:   cfg.Watch.BlockBuffer,
		SeenTTL:       cfg.Watch.SeenTTL,
		BlockInterval: cfg.Watch.BlockPollInterval,
		StatsInterval: cfg.Watch.StatsInterval,
		Mirror:        mir,
	}
	if exp != nil {
		opts.Exporter = exp
	}
	eng := engine.New(client, limiter, console, opts)

	if cfg.Ops.Addr != "" {
		ops := server.New(cfg.Ops.Addr, eng, mir)
		ops.Start()
		defer ops.Shutdown()
	}

	return eng.Run(ctx)
}

// buildMirror returns the configured statistics mirror, or Noop. A mirror
// that cannot be attached downgrades to Noop with a logged error: mirroring
// is best-effort and must never keep the watch from starting.
func buildMirror(ctx context.Context, cfg config.Config) mirror.Mirror {
	if !cfg.Mirror.Enabled {
		return mirror.Noop{}
	}

	endpoint := cfg.Mirror.Endpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint.URL
	}

	contract, err := mirror.NewContract(ctx, mirror.ContractConfig{
		Endpoint:   endpoint,
		Address:    cfg.Mirror.Contract,
		PrivateKey: cfg.Mirror.PrivateKey,
		ChainID:    cfg.Mirror.ChainID,
		GasLimit:   cfg.Mirror.GasLimit,
	})
	if err != nil {
		logger.Error("statistics mirror disabled", zap.Error(err))
		return mirror.Noop{}
	}
	return mirror.NewAsync(contract, cfg.Mirror.Queue)
}

// buildExporter returns the configured stream exporter, or nil when export
// is disabled.
func buildExporter(cfg config.Config) *export.Exporter {
	switch cfg.Export.Driver {
	case "kafka":
		return export.NewExporter(export.NewKafkaPublisher(cfg.Export.KafkaBrokers), cfg.Export.Queue)
	case "redis":
		return export.NewExporter(
			export.NewRedisPublisher(cfg.Export.RedisAddr, cfg.Export.RedisPassword, cfg.Export.RedisDB),
			cfg.Export.Queue)
	default:
		return nil
	}
}

func printConnectionHelp(err error) {
	fmt.Fprintf(os.Stderr, "Connection Error: %v\n", err)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Troubleshooting suggestions:")
	fmt.Fprintln(os.Stderr, "1. Check if your Ethereum node is running at the specified endpoint")
	fmt.Fprintln(os.Stderr, "2. Verify network connectivity and firewall settings")
	fmt.Fprintln(os.Stderr, "3. Some public endpoints may have rate limits or require API keys")
	fmt.Fprintln(os.Stderr, "4. Try one of these alternative public Ethereum endpoints:")
	fmt.Fprintln(os.Stderr, "   - Ankr:       https://rpc.ankr.com/eth")
	fmt.Fprintln(os.Stderr, "   - QuickNode:  https://endpoints.omniatech.io/v1/eth/mainnet/public")
	fmt.Fprintln(os.Stderr, "   - Cloudflare: https://cloudflare-eth.com")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Tip: run 'ethwatch endpoints' to see all available public endpoints")

	if ethrpc.IsRateLimited(err) {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "The endpoint rejected the request as rate-limited (e.g. code -32046). This typically means:")
		fmt.Fprintln(os.Stderr, "- You exceeded the endpoint's allowed request rate")
		fmt.Fprintln(os.Stderr, "- The endpoint requires an API key for the requested method")
		fmt.Fprintln(os.Stderr, "- The endpoint is temporarily shedding load")
		fmt.Fprintln(os.Stderr, "Lower the rate with -r (e.g. -r 10) or switch to an endpoint with higher limits.")
	}
}
