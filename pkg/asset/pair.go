package asset

import (
	"fmt"
	"strings"
)

// ErrMalformedPair is returned when a composite symbol cannot be split
// into a base and a quote side.
var ErrMalformedPair = fmt.Errorf("malformed trading pair")

// pairSeparators are the accepted separators, tried in order.
var pairSeparators = []string{"/", "-", "_"}

// ParsePair splits a composite symbol like "BTC/USDT" (also "BTC-USDT",
// "BTC_USDT") into its base and quote assets, resolving both against the
// registry.
func (r *Registry) ParsePair(composite string) (base, quote Asset, err error) {
	for _, sep := range pairSeparators {
		idx := strings.Index(composite, sep)
		if idx < 0 {
			continue
		}
		lhs, rhs := composite[:idx], composite[idx+len(sep):]
		if lhs == "" || rhs == "" {
			return Asset{}, Asset{}, fmt.Errorf("%w: %q", ErrMalformedPair, composite)
		}
		if base, err = r.Resolve(lhs); err != nil {
			return Asset{}, Asset{}, err
		}
		if quote, err = r.Resolve(rhs); err != nil {
			return Asset{}, Asset{}, err
		}
		return base, quote, nil
	}
	return Asset{}, Asset{}, fmt.Errorf("%w: %q has no separator", ErrMalformedPair, composite)
}
