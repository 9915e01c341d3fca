package exchange

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hsong-dev/tradegate/pkg/asset"
)

// Side is the direction of an order.
type Side int8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("unknown side %q", v)
	}
	return nil
}

// OrderKind distinguishes limit from market orders.
type OrderKind int8

const (
	Limit OrderKind = iota + 1
	Market
)

func (k OrderKind) String() string {
	switch k {
	case Limit:
		return "limit"
	case Market:
		return "market"
	default:
		return "unknown"
	}
}

func (k OrderKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *OrderKind) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "limit":
		*k = Limit
	case "market":
		*k = Market
	default:
		return fmt.Errorf("unknown order type %q", v)
	}
	return nil
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus int8

const (
	OrderPending OrderStatus = iota + 1
	OrderFilled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderFilled:
		return "filled"
	default:
		return "unknown"
	}
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "pending":
		*s = OrderPending
	case "filled":
		*s = OrderFilled
	default:
		return fmt.Errorf("unknown order status %q", v)
	}
	return nil
}

// Order is a request to buy or sell a quantity of a base asset priced
// in a quote asset. Price and Qty stay decimal until settlement, where
// they are scaled to each asset's integer fixed-point representation.
type Order struct {
	ID        string          `json:"orderId"`
	Symbol    string          `json:"symbol"`
	Owner     string          `json:"owner"`
	Price     decimal.Decimal `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	Side      Side            `json:"side"`
	Kind      OrderKind       `json:"type"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	MatchedAt *time.Time      `json:"matchedAt,omitempty"`
}

// Trade is the record of a matched order. Exactly one trade per matched
// order; the settlement reference is attached after confirmation and is
// best-effort.
type Trade struct {
	ID        string          `json:"tradeId"`
	OrderID   string          `json:"orderId"`
	Symbol    string          `json:"symbol"`
	Owner     string          `json:"owner"`
	Price     decimal.Decimal `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	Side      Side            `json:"side"`
	Kind      OrderKind       `json:"type"`
	MatchedAt time.Time       `json:"matchedAt"`
	CreatedAt time.Time       `json:"createdAt"`

	SettlementTxHash      string `json:"settlementTxHash,omitempty"`
	SettlementBlockNumber uint64 `json:"settlementBlockNumber,omitempty"`
}

// BalanceUpdate is one signed movement of one asset for one account,
// scaled by the asset's decimal precision.
type BalanceUpdate struct {
	Account string
	AssetID [32]byte
	Amount  *big.Int
}

// Settlement is the calculator output for one trade: the four balance
// updates (buyer quote/base, seller quote/base) plus the resolved pair
// and scaled amounts.
type Settlement struct {
	Updates    []BalanceUpdate
	BaseAsset  asset.Asset
	QuoteAsset asset.Asset
	// BaseAmount is the scaled base quantity, QuoteAmount the scaled
	// quote notional (base * price at quote precision).
	BaseAmount  *big.Int
	QuoteAmount *big.Int
}
