package storage

import "fmt"

// Key schema for Pebble storage.
//
// Primary records:
//
//	ord:<symbol>:<orderID> → Order (JSON)
//	trd:<symbol>:<tradeID> → Trade (JSON)
//
// Secondary indexes (value is the primary key):
//
//	ordown:<owner>:<orderID> → primary order key
//	trdown:<owner>:<tradeID> → primary trade key
//
// Segments are interpolated verbatim, so owners and symbols must not
// contain ':' or one owner's prefix scan would match another's entries.
// Owners are hex account strings and symbols use '/', '-' or '_'
// separators, so the charset holds for every record written here.
const (
	prefixOrder      = "ord:"
	prefixTrade      = "trd:"
	prefixOrderOwner = "ordown:"
	prefixTradeOwner = "trdown:"
)

func orderKey(symbol, orderID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixOrder, symbol, orderID))
}

func tradeKey(symbol, tradeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixTrade, symbol, tradeID))
}

func tradeSymbolPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, symbol))
}

func orderOwnerKey(owner, orderID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixOrderOwner, owner, orderID))
}

func orderOwnerPrefix(owner string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrderOwner, owner))
}

func tradeOwnerKey(owner, tradeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixTradeOwner, owner, tradeID))
}

func tradeOwnerPrefix(owner string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTradeOwner, owner))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
