package api

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// AssetInfo represents one registered asset
type AssetInfo struct {
	Symbol   string `json:"symbol"`   // e.g., "BTC"
	Decimals uint8  `json:"decimals"` // Fixed-point precision
	AssetID  string `json:"assetId"`  // Stable identifier (hex)
}

// SubmitOrderResponse is the response from order submission
type SubmitOrderResponse struct {
	Status  string `json:"status"` // Terminal pipeline outcome
	OrderID string `json:"orderId,omitempty"`
	TradeID string `json:"tradeId,omitempty"`
	TxHash  string `json:"txHash,omitempty"`
	Message string `json:"message,omitempty"` // Error summary if failed
}

// RegisterAssetRequest is the payload for POST /api/v1/admin/assets
type RegisterAssetRequest struct {
	Symbol string `json:"symbol"`
}

// RegisterAssetResponse reports the on-chain registration outcome
type RegisterAssetResponse struct {
	Symbol      string `json:"symbol"`
	AssetID     string `json:"assetId"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSWelcome is the first frame sent on a new connection; clients quote
// ConnectionID as connectionId in order submissions to receive status
// events on this connection.
type WSWelcome struct {
	Type         string `json:"type"` // "welcome"
	ConnectionID string `json:"connectionId"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["trades:BTC/USDT"]
}

// TradeUpdate is broadcast to trades:<symbol> subscribers when a trade
// settles
type TradeUpdate struct {
	Type        string `json:"type"` // "trade"
	Symbol      string `json:"symbol"`
	TradeID     string `json:"tradeId"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Timestamp   int64  `json:"timestamp"` // Unix milliseconds
}
