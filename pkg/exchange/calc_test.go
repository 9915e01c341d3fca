package exchange

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hsong-dev/tradegate/pkg/asset"
)

const testVenueAccount = "0xvenue"

func newTestCalculator() *Calculator {
	return NewCalculator(asset.DefaultRegistry(), testVenueAccount)
}

func testOrder(symbol, price, qty string, side Side) *Order {
	return &Order{
		ID:     "order-1",
		Symbol: symbol,
		Owner:  "0xabc",
		Price:  decimal.RequireFromString(price),
		Qty:    decimal.RequireFromString(qty),
		Side:   side,
		Kind:   Market,
	}
}

func TestComputeBalanceUpdates_Amounts(t *testing.T) {
	c := newTestCalculator()

	// 0.01 BTC at 50000 USDT: base scaled to 8 decimals, quote to 6.
	s, err := c.ComputeBalanceUpdates(testOrder("BTC/USDT", "50000", "0.01", Buy))
	if err != nil {
		t.Fatalf("ComputeBalanceUpdates: %v", err)
	}

	if want := big.NewInt(1_000_000); s.BaseAmount.Cmp(want) != 0 {
		t.Errorf("base amount = %s, want %s", s.BaseAmount, want)
	}
	if want := big.NewInt(500_000_000); s.QuoteAmount.Cmp(want) != 0 {
		t.Errorf("quote amount = %s, want %s", s.QuoteAmount, want)
	}
	if len(s.Updates) != 4 {
		t.Fatalf("got %d balance updates, want 4", len(s.Updates))
	}

	// Buyer is the order owner, venue inventory is the seller.
	if s.Updates[0].Account != "0xabc" || s.Updates[0].Amount.Sign() >= 0 {
		t.Errorf("buyer quote leg wrong: %s %s", s.Updates[0].Account, s.Updates[0].Amount)
	}
	if s.Updates[3].Account != testVenueAccount || s.Updates[3].Amount.Sign() <= 0 {
		// seller base leg is negative
		t.Errorf("seller base leg wrong: %s %s", s.Updates[3].Account, s.Updates[3].Amount)
	}
}

func TestComputeBalanceUpdates_Conservation(t *testing.T) {
	c := newTestCalculator()

	orders := []*Order{
		testOrder("BTC/USDT", "50000", "0.01", Buy),
		testOrder("BTC/USDT", "63999.99", "1.23456789", Sell),
		testOrder("ETH-USDC", "3000.123456", "0.000000000000000001", Buy),
		testOrder("SOL_USDT", "142.7", "10", Sell),
	}

	for _, o := range orders {
		s, err := c.ComputeBalanceUpdates(o)
		if err != nil {
			t.Fatalf("%s: %v", o.Symbol, err)
		}
		sums := make(map[[32]byte]*big.Int)
		for _, u := range s.Updates {
			if sums[u.AssetID] == nil {
				sums[u.AssetID] = new(big.Int)
			}
			sums[u.AssetID].Add(sums[u.AssetID], u.Amount)
		}
		for id, sum := range sums {
			if sum.Sign() != 0 {
				t.Errorf("%s: asset %x deltas sum to %s, want 0", o.Symbol, id[:4], sum)
			}
		}
	}
}

func TestComputeBalanceUpdates_SellSwapsParties(t *testing.T) {
	c := newTestCalculator()

	s, err := c.ComputeBalanceUpdates(testOrder("BTC/USDT", "50000", "0.01", Sell))
	if err != nil {
		t.Fatalf("ComputeBalanceUpdates: %v", err)
	}
	// For a sell the venue is the buyer leg and the owner receives quote.
	if s.Updates[0].Account != testVenueAccount {
		t.Errorf("buyer quote leg account = %s, want venue", s.Updates[0].Account)
	}
	if s.Updates[2].Account != "0xabc" || s.Updates[2].Amount.Sign() <= 0 {
		t.Errorf("seller quote leg should credit owner: %s %s", s.Updates[2].Account, s.Updates[2].Amount)
	}
}

func TestComputeBalanceUpdates_Pure(t *testing.T) {
	c := newTestCalculator()
	o := testOrder("BTC/USDT", "50000.123", "0.012345", Buy)

	a, err := c.ComputeBalanceUpdates(o)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.ComputeBalanceUpdates(o)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Updates {
		if a.Updates[i].Account != b.Updates[i].Account ||
			a.Updates[i].AssetID != b.Updates[i].AssetID ||
			a.Updates[i].Amount.Cmp(b.Updates[i].Amount) != 0 {
			t.Fatalf("update %d differs between identical invocations", i)
		}
	}
}

func TestComputeBalanceUpdates_TruncatesTowardZero(t *testing.T) {
	c := newTestCalculator()

	// 9 decimal places of BTC quantity: the 9th digit is dropped, not
	// rounded up.
	s, err := c.ComputeBalanceUpdates(testOrder("BTC/USDT", "1", "0.123456789", Buy))
	if err != nil {
		t.Fatal(err)
	}
	if want := big.NewInt(12_345_678); s.BaseAmount.Cmp(want) != 0 {
		t.Errorf("base amount = %s, want %s (truncated)", s.BaseAmount, want)
	}
}

func TestComputeBalanceUpdates_Errors(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		name  string
		order *Order
	}{
		{name: "no separator", order: testOrder("BTCUSDT", "1", "1", Buy)},
		{name: "unsupported asset", order: testOrder("XMR/USDT", "1", "1", Buy)},
		{name: "qty truncates to zero", order: testOrder("BTC/USDT", "1", "0.000000001", Buy)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.ComputeBalanceUpdates(tt.order); !errors.Is(err, ErrComputeSettlement) {
				t.Errorf("err = %v, want ErrComputeSettlement", err)
			}
		})
	}
}

func TestSettlementHash_Deterministic(t *testing.T) {
	a := SettlementHash("trade-1")
	b := SettlementHash("trade-1")
	c := SettlementHash("trade-2")
	if a != b {
		t.Error("hash not deterministic for same trade ID")
	}
	if a == c {
		t.Error("hash collides across trade IDs")
	}
}
