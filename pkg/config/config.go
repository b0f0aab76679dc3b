package config

import (
	"encoding/hex"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"ethwatch/pkg/errno"
)

// Watch modes. The set is closed: a mode is chosen at startup and holds for
// the lifetime of the process.
const (
	ModePending = "pending"
	ModeBlocks  = "blocks"
	ModeAll     = "all"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Export   ExportConfig   `mapstructure:"export"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type EndpointConfig struct {
	URL         string        `mapstructure:"url"`
	RateLimit   int           `mapstructure:"rate_limit"` // queries per second, shared by all pollers
	Mode        string        `mapstructure:"mode"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type WatchConfig struct {
	TxBuffer          int           `mapstructure:"tx_buffer"`
	BlockBuffer       int           `mapstructure:"block_buffer"`
	SeenTTL           time.Duration `mapstructure:"seen_ttl"`
	BlockPollInterval time.Duration `mapstructure:"block_poll_interval"`
	StatsInterval     time.Duration `mapstructure:"stats_interval"`
}

type OpsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. ":9464"; empty disables the ops server
}

type ExportConfig struct {
	Driver        string   `mapstructure:"driver"` // "", "kafka" or "redis"
	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
	RedisAddr     string   `mapstructure:"redis_addr"`
	RedisPassword string   `mapstructure:"redis_password"`
	RedisDB       int      `mapstructure:"redis_db"`
	Queue         int      `mapstructure:"queue"`
}

type MirrorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"` // empty means the main endpoint URL
	Contract   string `mapstructure:"contract"`
	PrivateKey string `mapstructure:"private_key"` // usually injected via MIRROR_PRIVATE_KEY
	ChainID    int64  `mapstructure:"chain_id"`
	GasLimit   uint64 `mapstructure:"gas_limit"`
	Queue      int    `mapstructure:"queue"`
}

var Global Config

// Init loads configuration into Global. With an explicit cfgFile the file
// must exist; otherwise the usual search paths are tried and missing files
// fall back to defaults plus environment variables.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config") // name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("endpoint.url", "https://rpc.ankr.com/eth")
	viper.SetDefault("endpoint.rate_limit", 30)
	viper.SetDefault("endpoint.mode", ModeAll)
	viper.SetDefault("endpoint.call_timeout", "10s")
	viper.SetDefault("endpoint.dial_timeout", "5s")

	viper.SetDefault("retry.base_delay", "500ms")
	viper.SetDefault("retry.max_delay", "8s")
	viper.SetDefault("retry.max_attempts", 5)

	viper.SetDefault("watch.tx_buffer", 1000)
	viper.SetDefault("watch.block_buffer", 100)
	viper.SetDefault("watch.seen_ttl", "15m")
	viper.SetDefault("watch.block_poll_interval", "1s")
	viper.SetDefault("watch.stats_interval", "1s")

	viper.SetDefault("ops.addr", "")

	viper.SetDefault("export.driver", "")
	viper.SetDefault("export.kafka_brokers", []string{"localhost:9092"})
	viper.SetDefault("export.redis_addr", "localhost:6379")
	viper.SetDefault("export.redis_db", 0)
	viper.SetDefault("export.queue", 256)

	viper.SetDefault("mirror.enabled", false)
	viper.SetDefault("mirror.endpoint", "")
	viper.SetDefault("mirror.chain_id", 1)
	viper.SetDefault("mirror.gas_limit", 200000)
	viper.SetDefault("mirror.queue", 64)
}

// Validate rejects configurations that must never reach the pollers.
// Every violation is an errno.KindConfig error with a descriptive message.
func (c *Config) Validate() error {
	const op = "config.validate"

	u, err := url.Parse(c.Endpoint.URL)
	if err != nil || c.Endpoint.URL == "" {
		return errno.Configf(op, "endpoint url %q is not a valid URL", c.Endpoint.URL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return errno.Configf(op, "endpoint url %q: unsupported scheme %q (want http, https, ws or wss)", c.Endpoint.URL, u.Scheme)
	}
	if u.Host == "" {
		return errno.Configf(op, "endpoint url %q has no host", c.Endpoint.URL)
	}

	if c.Endpoint.RateLimit <= 0 {
		return errno.Configf(op, "rate limit must be positive, got %v", c.Endpoint.RateLimit)
	}

	switch c.Endpoint.Mode {
	case ModePending, ModeBlocks, ModeAll:
	default:
		return errno.Configf(op, "mode %q is not one of pending, blocks, all", c.Endpoint.Mode)
	}

	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errno.Configf(op, "log level %q is not one of debug, info, warn, error", c.App.LogLevel)
	}

	if c.Retry.MaxAttempts < 1 {
		return errno.Configf(op, "retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errno.Configf(op, "retry delays invalid: base %v, max %v", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}

	if c.Watch.TxBuffer <= 0 || c.Watch.BlockBuffer <= 0 {
		return errno.Configf(op, "buffers must be positive: tx %d, block %d", c.Watch.TxBuffer, c.Watch.BlockBuffer)
	}

	switch c.Export.Driver {
	case "", "kafka", "redis":
	default:
		return errno.Configf(op, "export driver %q is not one of kafka, redis", c.Export.Driver)
	}
	if c.Export.Driver == "kafka" && len(c.Export.KafkaBrokers) == 0 {
		return errno.Configf(op, "export driver kafka requires at least one broker")
	}

	if c.Mirror.Enabled {
		if c.Mirror.Contract == "" {
			return errno.Configf(op, "mirror enabled but no contract address configured")
		}
		if !common.IsHexAddress(c.Mirror.Contract) {
			return errno.Configf(op, "mirror contract %q is not a hex address", c.Mirror.Contract)
		}
		key := strings.TrimPrefix(c.Mirror.PrivateKey, "0x")
		if _, err := hex.DecodeString(key); err != nil || len(key) != 64 {
			return errno.Configf(op, "mirror private key is not a 32-byte hex string")
		}
	}

	return nil
}
