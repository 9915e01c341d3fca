package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStorage marks persistence failures during intake.
var ErrStorage = fmt.Errorf("order storage failed")

// Terminal pipeline outcomes.
const (
	OutcomeRejected         = "rejected"
	OutcomeStorageFailed    = "storage_failed"
	OutcomePending          = "pending"
	OutcomeSettlementFailed = "settlement_failed"
	OutcomeEnqueueFailed    = "enqueue_failed"
	OutcomeMatched          = "matched"
)

// Outcome summarizes one pipeline invocation for the HTTP response.
type Outcome struct {
	Status string
	Order  *Order
	Trade  *Trade
	Err    error
}

// DecisionFunc decides whether a persisted order matches. Injectable so
// tests can pin the decision.
type DecisionFunc func(*Order) bool

// DefaultDecision matches every market order; limit orders match on a
// coin flip from rng, mirroring the venue's placeholder behavior until
// a real matching engine lands.
func DefaultDecision(rng *rand.Rand) DecisionFunc {
	return func(o *Order) bool {
		if o.Kind == Market {
			return true
		}
		return rng.Intn(2) == 0
	}
}

// Orchestrator drives one order from raw payload to a terminal state:
// validate, persist, decide, and on a match settle on-chain, reconcile
// the trade record, and hand the trade off downstream. All collaborators
// are injected; the orchestrator holds no mutable state, so invocations
// may run concurrently without coordination.
type Orchestrator struct {
	store    OrderStore
	queue    TradeQueue
	notifier Notifier
	settler  Settler
	calc     *Calculator
	decide   DecisionFunc

	minConfirmations  uint64
	settlementTimeout time.Duration

	log *zap.SugaredLogger
}

// Config collects the orchestrator's injected collaborators.
type Config struct {
	Store    OrderStore
	Queue    TradeQueue
	Notifier Notifier
	Settler  Settler
	Calc     *Calculator
	Decide   DecisionFunc

	MinConfirmations uint64
	// SettlementTimeout bounds the submit+confirm wait. Zero means no
	// caller-side bound.
	SettlementTimeout time.Duration

	Logger *zap.SugaredLogger
}

func NewOrchestrator(cfg Config) *Orchestrator {
	minConf := cfg.MinConfirmations
	if minConf == 0 {
		minConf = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		store:             cfg.Store,
		queue:             cfg.Queue,
		notifier:          cfg.Notifier,
		settler:           cfg.Settler,
		calc:              cfg.Calc,
		decide:            cfg.Decide,
		minConfirmations:  minConf,
		settlementTimeout: cfg.SettlementTimeout,
		log:               log,
	}
}

// ProcessOrder runs one submission through the pipeline. Every reachable
// terminal state emits exactly one final notification; ORDER_RECEIVED is
// an early ack sent right after successful persistence. Steps are
// strictly sequential; nothing is retried within an invocation.
func (p *Orchestrator) ProcessOrder(ctx context.Context, raw []byte) Outcome {
	order, req, err := ParseOrderRequest(raw)
	if err != nil {
		// The request survives a validation failure, so the rejection
		// still reaches the connection the submitter named.
		dest := ""
		if req != nil {
			dest = req.ConnectionID
		}
		p.log.Infow("order_rejected", "err", err)
		p.notify(dest, Event{Type: EventOrderError, Message: err.Error()})
		return Outcome{Status: OutcomeRejected, Err: err}
	}
	dest := req.ConnectionID

	if err := p.store.SaveOrder(ctx, order); err != nil {
		p.log.Errorw("order_store_failed", "order_id", order.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Message: "order storage failed"})
		return Outcome{Status: OutcomeStorageFailed, Order: order, Err: fmt.Errorf("%w: %v", ErrStorage, err)}
	}
	p.notify(dest, Event{Type: EventOrderReceived, Order: order})

	if !p.decide(order) {
		p.log.Infow("order_stored", "order_id", order.ID, "symbol", order.Symbol)
		p.notify(dest, Event{Type: EventOrderStored, Order: order})
		return Outcome{Status: OutcomePending, Order: order}
	}

	now := time.Now().UTC()
	order.Status = OrderFilled
	order.MatchedAt = &now
	order.UpdatedAt = now
	if err := p.store.UpdateOrder(ctx, order); err != nil {
		p.log.Errorw("order_update_failed", "order_id", order.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Message: "order storage failed"})
		return Outcome{Status: OutcomeStorageFailed, Order: order, Err: fmt.Errorf("%w: %v", ErrStorage, err)}
	}

	trade := &Trade{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Owner:     order.Owner,
		Price:     order.Price,
		Qty:       order.Qty,
		Side:      order.Side,
		Kind:      order.Kind,
		MatchedAt: now,
		CreatedAt: now,
	}
	if err := p.store.SaveTrade(ctx, trade); err != nil {
		p.log.Errorw("trade_store_failed", "trade_id", trade.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Message: "trade storage failed"})
		return Outcome{Status: OutcomeStorageFailed, Order: order, Trade: trade, Err: fmt.Errorf("%w: %v", ErrStorage, err)}
	}

	settlement, err := p.calc.ComputeBalanceUpdates(order)
	if err != nil {
		p.log.Errorw("settlement_compute_failed", "order_id", order.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Message: "settlement computation failed: " + err.Error()})
		return Outcome{Status: OutcomeSettlementFailed, Order: order, Trade: trade, Err: err}
	}

	receipt, err := p.settle(ctx, trade.ID, settlement)
	if err != nil {
		// Order stays filled and the trade stays persisted without a
		// settlement reference: recorded but funds not moved. Reported,
		// never swallowed.
		p.log.Errorw("settlement_failed", "trade_id", trade.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Trade: trade,
			Message: "on-chain settlement failed, funds not moved"})
		return Outcome{Status: OutcomeSettlementFailed, Order: order, Trade: trade, Err: err}
	}

	// Best-effort enrichment: the trade is valid without it.
	if err := p.store.AttachSettlement(ctx, trade.Symbol, trade.ID, receipt.TxHash, receipt.BlockNumber); err != nil {
		p.log.Warnw("settlement_attach_failed", "trade_id", trade.ID, "err", err)
	} else {
		trade.SettlementTxHash = receipt.TxHash
		trade.SettlementBlockNumber = receipt.BlockNumber
	}

	msg := &TradeMessage{
		Trade:       trade,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		BaseAmount:  settlement.BaseAmount.String(),
		QuoteAmount: settlement.QuoteAmount.String(),
	}
	if err := p.queue.Publish(ctx, msg); err != nil {
		// Distinct from a settlement failure: funds moved, the
		// downstream event did not.
		p.log.Errorw("trade_enqueue_failed", "trade_id", trade.ID, "err", err)
		p.notify(dest, Event{Type: EventOrderError, Trade: trade,
			Message: "trade settled but enqueue to downstream queue failed"})
		return Outcome{Status: OutcomeEnqueueFailed, Order: order, Trade: trade, Err: err}
	}

	p.log.Infow("order_matched", "order_id", order.ID, "trade_id", trade.ID,
		"tx_hash", receipt.TxHash, "block", receipt.BlockNumber)
	p.notify(dest, Event{Type: EventOrderMatched, Order: order, Trade: trade})
	return Outcome{Status: OutcomeMatched, Order: order, Trade: trade}
}

// settle submits the balance updates and waits for confirmations,
// bounded by the configured timeout.
func (p *Orchestrator) settle(ctx context.Context, tradeID string, s *Settlement) (*SettlementReceipt, error) {
	if p.settlementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settlementTimeout)
		defer cancel()
	}

	pending, err := p.settler.SubmitSettlement(ctx, SettlementHash(tradeID), s.Updates)
	if err != nil {
		return nil, err
	}
	return p.settler.AwaitConfirmation(ctx, pending, p.minConfirmations)
}

// notify delivers a status event. Delivery failures (requester gone,
// channel closed) are logged and ignored.
func (p *Orchestrator) notify(dest string, ev Event) {
	if err := p.notifier.Notify(dest, ev); err != nil {
		p.log.Debugw("notify_failed", "dest", dest, "event", ev.Type, "err", err)
	}
}
