package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hsong-dev/tradegate/pkg/exchange"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOrder(id, owner string) *exchange.Order {
	now := time.Now().UTC()
	return &exchange.Order{
		ID:        id,
		Symbol:    "BTC/USDT",
		Owner:     owner,
		Price:     decimal.RequireFromString("50000"),
		Qty:       decimal.RequireFromString("0.01"),
		Side:      exchange.Buy,
		Kind:      exchange.Limit,
		Status:    exchange.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	o := testOrder("o1", "0xabc")
	if err := s.SaveOrder(ctx, o); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	got, err := s.GetOrder(ctx, o.Symbol, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Owner != o.Owner || !got.Price.Equal(o.Price) || got.Status != exchange.OrderPending {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	// Update to filled
	now := time.Now().UTC()
	o.Status = exchange.OrderFilled
	o.MatchedAt = &now
	if err := s.UpdateOrder(ctx, o); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	got, _ = s.GetOrder(ctx, o.Symbol, o.ID)
	if got.Status != exchange.OrderFilled || got.MatchedAt == nil {
		t.Errorf("update not persisted: %+v", got)
	}

	if _, err := s.GetOrder(ctx, "BTC/USDT", "missing"); err != ErrNotFound {
		t.Errorf("missing order err = %v, want ErrNotFound", err)
	}
}

func TestUpdateOrder_Missing(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateOrder(context.Background(), testOrder("ghost", "0xabc")); err != ErrNotFound {
		t.Errorf("UpdateOrder(missing) = %v, want ErrNotFound", err)
	}
}

func TestOwnerIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, o := range []*exchange.Order{
		testOrder("o1", "0xabc"),
		testOrder("o2", "0xabc"),
		testOrder("o3", "0xother"),
	} {
		if err := s.SaveOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	orders, err := s.ListOrdersByOwner(ctx, "0xabc")
	if err != nil {
		t.Fatalf("ListOrdersByOwner: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("got %d orders for 0xabc, want 2", len(orders))
	}
}

func TestTradePersistenceAndEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trade := &exchange.Trade{
		ID:        "t1",
		OrderID:   "o1",
		Symbol:    "BTC/USDT",
		Owner:     "0xabc",
		Price:     decimal.RequireFromString("50000"),
		Qty:       decimal.RequireFromString("0.01"),
		Side:      exchange.Buy,
		Kind:      exchange.Market,
		MatchedAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}

	if err := s.AttachSettlement(ctx, trade.Symbol, trade.ID, "0xdeadbeef", 1234); err != nil {
		t.Fatalf("AttachSettlement: %v", err)
	}
	got, err := s.GetTrade(ctx, trade.Symbol, trade.ID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got.SettlementTxHash != "0xdeadbeef" || got.SettlementBlockNumber != 1234 {
		t.Errorf("enrichment not persisted: %+v", got)
	}

	bySymbol, err := s.ListTradesBySymbol(ctx, "BTC/USDT", 10)
	if err != nil || len(bySymbol) != 1 {
		t.Errorf("ListTradesBySymbol = %d trades, err %v", len(bySymbol), err)
	}
	byOwner, err := s.ListTradesByOwner(ctx, "0xabc")
	if err != nil || len(byOwner) != 1 {
		t.Errorf("ListTradesByOwner = %d trades, err %v", len(byOwner), err)
	}

	if err := s.AttachSettlement(ctx, "BTC/USDT", "missing", "0x0", 1); err != ErrNotFound {
		t.Errorf("AttachSettlement(missing) = %v, want ErrNotFound", err)
	}
}
