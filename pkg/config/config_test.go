package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethwatch/pkg/errno"
)

func validConfig() Config {
	return Config{
		App: AppConfig{Env: "development", LogLevel: "info"},
		Endpoint: EndpointConfig{
			URL:         "https://rpc.ankr.com/eth",
			RateLimit:   30,
			Mode:        ModeAll,
			CallTimeout: 10 * time.Second,
			DialTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, MaxAttempts: 5},
		Watch: WatchConfig{
			TxBuffer:          1000,
			BlockBuffer:       100,
			SeenTTL:           15 * time.Minute,
			BlockPollInterval: time.Second,
			StatsInterval:     time.Second,
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"empty url", func(c *Config) { c.Endpoint.URL = "" }, "valid URL"},
		{"bad scheme", func(c *Config) { c.Endpoint.URL = "ftp://rpc.example.com" }, "unsupported scheme"},
		{"no host", func(c *Config) { c.Endpoint.URL = "https://" }, "no host"},
		{"zero rate", func(c *Config) { c.Endpoint.RateLimit = 0 }, "rate limit"},
		{"negative rate", func(c *Config) { c.Endpoint.RateLimit = -3 }, "rate limit"},
		{"bad mode", func(c *Config) { c.Endpoint.Mode = "everything" }, "mode"},
		{"bad log level", func(c *Config) { c.App.LogLevel = "verbose" }, "log level"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = 100 * time.Millisecond }, "retry delays"},
		{"zero tx buffer", func(c *Config) { c.Watch.TxBuffer = 0 }, "buffers"},
		{"bad export driver", func(c *Config) { c.Export.Driver = "nats" }, "export driver"},
		{"kafka without brokers", func(c *Config) { c.Export.Driver = "kafka" }, "broker"},
		{"mirror without contract", func(c *Config) { c.Mirror.Enabled = true }, "contract"},
		{
			"mirror with malformed contract",
			func(c *Config) {
				c.Mirror.Enabled = true
				c.Mirror.Contract = "not-an-address"
			},
			"hex address",
		},
		{
			"mirror with short key",
			func(c *Config) {
				c.Mirror.Enabled = true
				c.Mirror.Contract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
				c.Mirror.PrivateKey = "0xdeadbeef"
			},
			"private key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errno.IsConfig(err), "expected a config error, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateAcceptsMirrorKey(t *testing.T) {
	cfg := validConfig()
	cfg.Mirror.Enabled = true
	cfg.Mirror.Contract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	cfg.Mirror.PrivateKey = "0x" + strings.Repeat("ab", 32)

	require.NoError(t, cfg.Validate())
}

func TestValidateAcceptsWebsocketScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Endpoint.URL = "wss://mainnet.example.io/ws"

	require.NoError(t, cfg.Validate())
}
