package params

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Gateway is the order intake and API surface configuration.
type Gateway struct {
	Addr        string   `env:"GATEWAY_ADDR" envDefault:":8080"`
	DataDir     string   `env:"DATA_DIR" envDefault:"data/gateway"`
	LogFile     string   `env:"LOG_FILE" envDefault:"data/gateway.log"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001"`

	// VenueAccount absorbs the opposite side of every trade.
	VenueAccount string `env:"VENUE_ACCOUNT" envDefault:"0x000000000000000000000000000000000000dEaD"`
}

// Chain configures the on-chain settlement client.
type Chain struct {
	RPCURL       string        `env:"CHAIN_RPC_URL" envDefault:"http://localhost:8545"`
	ChainID      int64         `env:"CHAIN_ID" envDefault:"1337"`
	ContractAddr string        `env:"SETTLEMENT_CONTRACT"`
	PrivateKey   string        `env:"SETTLEMENT_KEY"`
	PollInterval time.Duration `env:"CHAIN_POLL_INTERVAL" envDefault:"2s"`

	// MinConfirmations is the block-count finality threshold, at least 1.
	MinConfirmations uint64 `env:"MIN_CONFIRMATIONS" envDefault:"1"`
	// SettlementTimeout bounds one submit+confirm cycle. Zero disables
	// the bound.
	SettlementTimeout time.Duration `env:"SETTLEMENT_TIMEOUT" envDefault:"2m"`
}

// Kafka configures the downstream trade hand-off.
type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"trades.settled"`
}

// MarketData configures the external reference price source (seeding
// only).
type MarketData struct {
	TickerURL string `env:"TICKER_URL" envDefault:"https://api.binance.com/api/v3/ticker/price"`
}

type Config struct {
	Gateway    Gateway
	Chain      Chain
	Kafka      Kafka
	MarketData MarketData
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	var cfg Config
	if err := env.Parse(&cfg.Gateway); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg.Chain); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg.Kafka); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg.MarketData); err != nil {
		return cfg, err
	}
	if cfg.Chain.MinConfirmations == 0 {
		cfg.Chain.MinConfirmations = 1
	}
	return cfg, nil
}
