package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hsong-dev/tradegate/params"
	"github.com/hsong-dev/tradegate/pkg/exchange"
	"github.com/hsong-dev/tradegate/pkg/marketdata"
	"github.com/hsong-dev/tradegate/pkg/queue"
	"github.com/hsong-dev/tradegate/pkg/storage"
	"github.com/hsong-dev/tradegate/pkg/util"
)

// seed fetches external reference prices and writes sample filled
// orders and trades at those prices. Development tooling only: the
// settlement path never consults reference prices.
func main() {
	pairs := flag.String("pairs", "BTC/USDT,ETH/USDT,SOL/USDT", "comma-separated trading pairs")
	owner := flag.String("owner", "0xseed", "owner account for seeded records")
	perPair := flag.Int("n", 5, "trades to seed per pair")
	publish := flag.Bool("publish", false, "also publish seeded trades to Kafka")
	flag.Parse()

	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	store, err := storage.NewPebbleStore(cfg.Gateway.DataDir)
	if err != nil {
		sugar.Fatalw("storage_init_failed", "err", err)
	}
	defer store.Close()

	var publisher *queue.TradePublisher
	if *publish {
		publisher = queue.NewTradePublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, sugar)
		defer publisher.Close()
	}

	fetcher := marketdata.NewFetcher(cfg.MarketData.TickerURL)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, pair := range strings.Split(*pairs, ",") {
		pair = strings.TrimSpace(pair)
		price, err := fetcher.Price(ctx, pair)
		if err != nil {
			sugar.Warnw("price_fetch_failed", "pair", pair, "err", err)
			continue
		}
		sugar.Infow("reference_price", "pair", pair, "price", price.String())

		for i := 0; i < *perPair; i++ {
			if err := seedTrade(ctx, store, publisher, pair, *owner, price, i); err != nil {
				sugar.Errorw("seed_failed", "pair", pair, "err", err)
			}
		}
	}
	sugar.Info("seeding complete")
}

func seedTrade(ctx context.Context, store *storage.PebbleStore, publisher *queue.TradePublisher,
	pair, owner string, price decimal.Decimal, i int) error {

	now := time.Now().UTC()
	qty := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(i + 1)))
	side := exchange.Buy
	if i%2 == 1 {
		side = exchange.Sell
	}

	order := &exchange.Order{
		ID:        uuid.NewString(),
		Symbol:    pair,
		Owner:     owner,
		Price:     price,
		Qty:       qty,
		Side:      side,
		Kind:      exchange.Limit,
		Status:    exchange.OrderFilled,
		CreatedAt: now,
		UpdatedAt: now,
		MatchedAt: &now,
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		return err
	}

	trade := &exchange.Trade{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Symbol:    pair,
		Owner:     owner,
		Price:     price,
		Qty:       qty,
		Side:      side,
		Kind:      exchange.Limit,
		MatchedAt: now,
		CreatedAt: now,
	}
	if err := store.SaveTrade(ctx, trade); err != nil {
		return err
	}

	if publisher != nil {
		return publisher.Publish(ctx, &exchange.TradeMessage{
			Trade:       trade,
			BaseAmount:  qty.String(),
			QuoteAmount: price.Mul(qty).String(),
		})
	}
	return nil
}
