package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hsong-dev/tradegate/pkg/asset"
	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// ctxCheckedStore fails any operation invoked with an already-canceled
// context, so tests catch request-context leakage into the pipeline.
type ctxCheckedStore struct{}

func (ctxCheckedStore) SaveOrder(ctx context.Context, _ *exchange.Order) error   { return ctx.Err() }
func (ctxCheckedStore) UpdateOrder(ctx context.Context, _ *exchange.Order) error { return ctx.Err() }
func (ctxCheckedStore) SaveTrade(ctx context.Context, _ *exchange.Trade) error   { return ctx.Err() }
func (ctxCheckedStore) AttachSettlement(ctx context.Context, _, _, _ string, _ uint64) error {
	return ctx.Err()
}

type ctxCheckedQueue struct{}

func (ctxCheckedQueue) Publish(ctx context.Context, _ *exchange.TradeMessage) error {
	return ctx.Err()
}

type dropNotifier struct{}

func (dropNotifier) Notify(string, exchange.Event) error { return nil }

type ctxCheckedPending struct{}

func (ctxCheckedPending) TxHash() string { return "0xfeed" }

type ctxCheckedSettler struct{}

func (ctxCheckedSettler) SubmitSettlement(ctx context.Context, _ [32]byte, _ []exchange.BalanceUpdate) (exchange.PendingSettlement, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission canceled: %w", err)
	}
	return ctxCheckedPending{}, nil
}

func (ctxCheckedSettler) AwaitConfirmation(ctx context.Context, pending exchange.PendingSettlement, _ uint64) (*exchange.SettlementReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("confirmation canceled: %w", err)
	}
	return &exchange.SettlementReceipt{TxHash: pending.TxHash(), BlockNumber: 42}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("TX_LOG_FILE", filepath.Join(t.TempDir(), "orders.log"))

	registry := asset.DefaultRegistry()
	orch := exchange.NewOrchestrator(exchange.Config{
		Store:    ctxCheckedStore{},
		Queue:    ctxCheckedQueue{},
		Notifier: dropNotifier{},
		Settler:  ctxCheckedSettler{},
		Calc:     exchange.NewCalculator(registry, "0xvenue"),
		Decide:   func(*exchange.Order) bool { return true },
	})
	return NewServer(orch, nil, registry, nil, nil)
}

func TestSubmitOrder_SurvivesRequesterDisconnect(t *testing.T) {
	s := newTestServer(t)

	body := `{"symbol":"BTC/USDT","price":50000,"qty":0.01,"owner":"0xabc","type":"market"}`
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(body))

	// The requester is already gone before the pipeline starts.
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	s.handleSubmitOrder(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != exchange.OutcomeMatched {
		t.Errorf("outcome = %s, want matched; disconnect must not abort settlement", resp.Status)
	}
	if resp.TxHash != "0xfeed" {
		t.Errorf("txHash = %q, want 0xfeed", resp.TxHash)
	}
}
