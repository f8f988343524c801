package feed

// API response types for REST endpoints and WebSocket messages

// ProductInfo represents one catalog entry
type ProductInfo struct {
	Symbol string `json:"symbol"`
}

// TradeInfo represents an executed trade
type TradeInfo struct {
	Product   string `json:"product"`
	Buyer     uint64 `json:"buyer"`
	Seller    uint64 `json:"seller"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// StatusInfo represents gateway liveness counters
type StatusInfo struct {
	Status  string `json:"status"`
	Traders int    `json:"traders"`
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is the client-to-server WebSocket control message
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Products []string `json:"products"` // empty = all products
}

// WSTradeEvent is pushed to subscribed WebSocket clients on every match
type WSTradeEvent struct {
	Channel   string `json:"channel"` // always "trades"
	Product   string `json:"product"`
	Buyer     uint64 `json:"buyer"`
	Seller    uint64 `json:"seller"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}
