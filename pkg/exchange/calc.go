package exchange

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/hsong-dev/tradegate/pkg/asset"
)

// ErrComputeSettlement marks settlement computation failures: malformed
// or unsupported symbols and non-representable amounts. Callers must
// treat these as input-shape errors and not retry.
var ErrComputeSettlement = fmt.Errorf("settlement computation failed")

// Calculator turns a matched order into the signed per-account,
// per-asset balance movements the settlement contract applies. Pure:
// identical input always yields identical output.
type Calculator struct {
	registry *asset.Registry

	// venueAccount is the venue's inventory account. It absorbs the
	// opposite side of every trade.
	venueAccount string
}

func NewCalculator(registry *asset.Registry, venueAccount string) *Calculator {
	return &Calculator{registry: registry, venueAccount: venueAccount}
}

// scale converts a decimal value to integer fixed-point at the given
// precision, truncating toward zero beyond the declared decimals. This
// matches the integer-division semantics of the notional computation.
func scale(v decimal.Decimal, decimals uint8) *big.Int {
	return v.Truncate(int32(decimals)).Shift(int32(decimals)).BigInt()
}

// pow10 returns 10^n as a big.Int.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ComputeBalanceUpdates produces the four balance updates for one order:
// buyer pays quote and receives base, seller receives quote and pays
// base. Per asset the deltas across the two parties sum to zero.
func (c *Calculator) ComputeBalanceUpdates(o *Order) (*Settlement, error) {
	base, quote, err := c.registry.ParsePair(o.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrComputeSettlement, err)
	}
	if !o.Price.IsPositive() || !o.Qty.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive price or quantity", ErrComputeSettlement)
	}

	baseAmount := scale(o.Qty, base.Decimals)
	priceScaled := scale(o.Price, quote.Decimals)
	if baseAmount.Sign() == 0 || priceScaled.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount truncates to zero at asset precision", ErrComputeSettlement)
	}

	// quote notional = baseScaled * priceScaled / 10^baseDecimals,
	// keeping the result at quote precision. big.Int avoids overflow.
	quoteAmount := new(big.Int).Mul(baseAmount, priceScaled)
	quoteAmount.Quo(quoteAmount, pow10(base.Decimals))

	buyer, seller := o.Owner, c.venueAccount
	if o.Side == Sell {
		buyer, seller = c.venueAccount, o.Owner
	}

	updates := []BalanceUpdate{
		{Account: buyer, AssetID: quote.ID, Amount: new(big.Int).Neg(quoteAmount)},
		{Account: buyer, AssetID: base.ID, Amount: new(big.Int).Set(baseAmount)},
		{Account: seller, AssetID: quote.ID, Amount: new(big.Int).Set(quoteAmount)},
		{Account: seller, AssetID: base.ID, Amount: new(big.Int).Neg(baseAmount)},
	}

	return &Settlement{
		Updates:     updates,
		BaseAsset:   base,
		QuoteAsset:  quote,
		BaseAmount:  baseAmount,
		QuoteAmount: quoteAmount,
	}, nil
}
