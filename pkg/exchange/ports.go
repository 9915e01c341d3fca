package exchange

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
)

// OrderStore persists orders and trades. Implementations: pebble-backed
// store (pkg/storage) and test fakes.
type OrderStore interface {
	SaveOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	SaveTrade(ctx context.Context, t *Trade) error
	// AttachSettlement records the on-chain transaction reference on an
	// already-persisted trade. Best-effort enrichment.
	AttachSettlement(ctx context.Context, symbol, tradeID, txHash string, blockNumber uint64) error
}

// TradeQueue hands matched trades off to downstream consumers.
type TradeQueue interface {
	Publish(ctx context.Context, msg *TradeMessage) error
}

// TradeMessage is the queue payload for one settled trade.
type TradeMessage struct {
	Trade       *Trade `json:"trade"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	BaseAmount  string `json:"baseAmount"`
	QuoteAmount string `json:"quoteAmount"`
}

// PendingSettlement is the opaque handle returned by settlement
// submission, consumed by the confirmation wait.
type PendingSettlement interface {
	TxHash() string
}

// SettlementReceipt is the final on-chain reference for a confirmed
// settlement.
type SettlementReceipt struct {
	TxHash      string
	BlockNumber uint64
}

// Settler is the port to the on-chain settlement service. The
// orchestrator talks only to this interface, never to a chain client
// directly.
type Settler interface {
	SubmitSettlement(ctx context.Context, batchID [32]byte, updates []BalanceUpdate) (PendingSettlement, error)
	AwaitConfirmation(ctx context.Context, pending PendingSettlement, minConfirmations uint64) (*SettlementReceipt, error)
}

// Notifier delivers status events to the requesting party. Delivery is
// best-effort: a failed delivery never unwinds pipeline state.
type Notifier interface {
	Notify(dest string, event Event) error
}

// Event types emitted over the notification channel.
const (
	EventOrderReceived = "ORDER_RECEIVED"
	EventOrderStored   = "ORDER_STORED"
	EventOrderMatched  = "ORDER_MATCHED"
	EventOrderError    = "ORDER_ERROR"
)

// Event is one status update for an order submission.
type Event struct {
	Type    string `json:"type"`
	Order   *Order `json:"order,omitempty"`
	Trade   *Trade `json:"trade,omitempty"`
	Message string `json:"message,omitempty"`
}

// SettlementHash derives the idempotency hash binding one settlement
// submission to its trade.
func SettlementHash(tradeID string) [32]byte {
	var h [32]byte
	copy(h[:], crypto.Keccak256([]byte(tradeID)))
	return h
}
