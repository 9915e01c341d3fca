package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hsong-dev/tradegate/params"
	"github.com/hsong-dev/tradegate/pkg/api"
	"github.com/hsong-dev/tradegate/pkg/asset"
	"github.com/hsong-dev/tradegate/pkg/chain"
	"github.com/hsong-dev/tradegate/pkg/exchange"
	"github.com/hsong-dev/tradegate/pkg/queue"
	"github.com/hsong-dev/tradegate/pkg/storage"
	"github.com/hsong-dev/tradegate/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("") // "" means load from .env in current directory
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Gateway.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Gateway.LogFile)

	// ---- Storage ----
	store, err := storage.NewPebbleStore(cfg.Gateway.DataDir)
	if err != nil {
		sugar.Fatalw("storage_init_failed", "err", err)
	}
	defer store.Close()

	// ---- On-chain settlement ----
	settler, err := chain.Dial(chain.Config{
		RPCURL:       cfg.Chain.RPCURL,
		ChainID:      cfg.Chain.ChainID,
		ContractAddr: cfg.Chain.ContractAddr,
		PrivateKey:   cfg.Chain.PrivateKey,
		PollInterval: cfg.Chain.PollInterval,
	}, sugar)
	if err != nil {
		sugar.Fatalw("chain_init_failed", "err", err)
	}
	defer settler.Close()

	// ---- Queue ----
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.EnsureTopic(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.Topic)
	publisher := queue.NewTradePublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, sugar)
	defer publisher.Close()

	// ---- Pipeline ----
	registry := asset.DefaultRegistry()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var server *api.Server
	orch := exchange.NewOrchestrator(exchange.Config{
		Store:             store,
		Queue:             publisher,
		Notifier:          notifierFunc(func(dest string, ev exchange.Event) error { return server.Notify(dest, ev) }),
		Settler:           settler,
		Calc:              exchange.NewCalculator(registry, cfg.Gateway.VenueAccount),
		Decide:            exchange.DefaultDecision(rng),
		MinConfirmations:  cfg.Chain.MinConfirmations,
		SettlementTimeout: cfg.Chain.SettlementTimeout,
		Logger:            sugar,
	})

	server = api.NewServer(orch, store, registry, settler, cfg.Gateway.CORSOrigins)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Gateway.Addr) }()

	sugar.Infow("gateway_started", "addr", cfg.Gateway.Addr,
		"kafka_topic", cfg.Kafka.Topic, "min_confirmations", cfg.Chain.MinConfirmations)

	select {
	case <-ctx.Done():
		sugar.Info("shutdown signal received")
	case err := <-errCh:
		sugar.Errorw("server_stopped", "err", err)
	}
}

// notifierFunc adapts a closure to the Notifier port so the server's
// hub can be wired after the orchestrator is constructed.
type notifierFunc func(dest string, ev exchange.Event) error

func (f notifierFunc) Notify(dest string, ev exchange.Event) error { return f(dest, ev) }
