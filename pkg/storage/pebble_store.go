package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// ErrNotFound is returned for point reads of missing records.
var ErrNotFound = fmt.Errorf("record not found")

// PebbleStore persists orders and trades in a Pebble key-value store,
// keyed by symbol with a secondary owner index.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

var _ exchange.OrderStore = (*PebbleStore)(nil)

// SaveOrder writes the order and its owner index entry.
func (s *PebbleStore) SaveOrder(_ context.Context, o *exchange.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	key := orderKey(o.Symbol, o.ID)
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if err := s.db.Set(orderOwnerKey(o.Owner, o.ID), key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to index order by owner: %w", err)
	}
	return nil
}

// UpdateOrder overwrites an existing order record.
func (s *PebbleStore) UpdateOrder(ctx context.Context, o *exchange.Order) error {
	if _, err := s.GetOrder(ctx, o.Symbol, o.ID); err != nil {
		return err
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.Symbol, o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// GetOrder loads an order by symbol and ID.
func (s *PebbleStore) GetOrder(_ context.Context, symbol, orderID string) (*exchange.Order, error) {
	data, closer, err := s.db.Get(orderKey(symbol, orderID))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()

	var o exchange.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &o, nil
}

// SaveTrade persists a trade and its owner index entry.
func (s *PebbleStore) SaveTrade(_ context.Context, t *exchange.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	key := tradeKey(t.Symbol, t.ID)
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	if err := s.db.Set(tradeOwnerKey(t.Owner, t.ID), key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to index trade by owner: %w", err)
	}
	return nil
}

// GetTrade loads a trade by symbol and ID.
func (s *PebbleStore) GetTrade(_ context.Context, symbol, tradeID string) (*exchange.Trade, error) {
	data, closer, err := s.db.Get(tradeKey(symbol, tradeID))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	defer closer.Close()

	var t exchange.Trade
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade: %w", err)
	}
	return &t, nil
}

// AttachSettlement records the on-chain transaction reference on a
// persisted trade.
func (s *PebbleStore) AttachSettlement(ctx context.Context, symbol, tradeID, txHash string, blockNumber uint64) error {
	t, err := s.GetTrade(ctx, symbol, tradeID)
	if err != nil {
		return err
	}
	t.SettlementTxHash = txHash
	t.SettlementBlockNumber = blockNumber

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}
	if err := s.db.Set(tradeKey(symbol, tradeID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return nil
}

// ListOrdersByOwner loads all orders for an owner via the secondary
// index.
func (s *PebbleStore) ListOrdersByOwner(_ context.Context, owner string) ([]*exchange.Order, error) {
	prefix := orderOwnerPrefix(owner)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var orders []*exchange.Order
	for iter.First(); iter.Valid(); iter.Next() {
		data, closer, err := s.db.Get(iter.Value())
		if err != nil {
			continue // index entry without a primary record
		}
		var o exchange.Order
		if err := json.Unmarshal(data, &o); err == nil {
			orders = append(orders, &o)
		}
		closer.Close()
	}
	return orders, nil
}

// ListTradesBySymbol scans all trades of one symbol.
func (s *PebbleStore) ListTradesBySymbol(_ context.Context, symbol string, limit int) ([]*exchange.Trade, error) {
	prefix := tradeSymbolPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []*exchange.Trade
	for iter.First(); iter.Valid() && (limit <= 0 || len(trades) < limit); iter.Next() {
		var t exchange.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		trades = append(trades, &t)
	}
	return trades, nil
}

// ListTradesByOwner loads all trades for an owner via the secondary
// index.
func (s *PebbleStore) ListTradesByOwner(_ context.Context, owner string) ([]*exchange.Trade, error) {
	prefix := tradeOwnerPrefix(owner)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []*exchange.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		data, closer, err := s.db.Get(iter.Value())
		if err != nil {
			continue
		}
		var t exchange.Trade
		if err := json.Unmarshal(data, &t); err == nil {
			trades = append(trades, &t)
		}
		closer.Close()
	}
	return trades, nil
}
