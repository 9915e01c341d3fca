package asset

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnsupportedAsset is returned when a symbol is not in the registry.
var ErrUnsupportedAsset = fmt.Errorf("unsupported asset")

// Asset describes one tradable asset: its decimal precision and the
// stable 32-byte identifier the settlement contract keys balances by.
type Asset struct {
	Symbol   string
	Decimals uint8
	ID       [32]byte
}

// Registry is a static symbol -> Asset table. Lookups are pure: no I/O,
// no mutation after construction.
type Registry struct {
	assets map[string]Asset
}

// assetID derives the stable identifier for a symbol.
// keccak256 of the upper-cased symbol, matching the contract side.
func assetID(symbol string) [32]byte {
	var id [32]byte
	copy(id[:], crypto.Keccak256([]byte(strings.ToUpper(symbol))))
	return id
}

// NewRegistry builds a registry from symbol -> decimals pairs.
func NewRegistry(decimals map[string]uint8) *Registry {
	assets := make(map[string]Asset, len(decimals))
	for sym, dec := range decimals {
		key := strings.ToUpper(sym)
		assets[key] = Asset{Symbol: key, Decimals: dec, ID: assetID(key)}
	}
	return &Registry{assets: assets}
}

// DefaultRegistry returns the venue's supported assets.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]uint8{
		"BTC":  8,
		"ETH":  18,
		"SOL":  9,
		"USDT": 6,
		"USDC": 6,
	})
}

// Resolve looks up a symbol. Case-insensitive.
func (r *Registry) Resolve(symbol string) (Asset, error) {
	a, ok := r.assets[strings.ToUpper(symbol)]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	return a, nil
}

// List returns all registered assets.
func (r *Registry) List() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	return out
}
