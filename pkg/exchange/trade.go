package exchange

import "time"

// Trade records one executed match between two traders.
type Trade struct {
	Product   Product   `json:"-"`
	BuyerID   TraderID  `json:"buyer"`
	SellerID  TraderID  `json:"seller"`
	Timestamp time.Time `json:"ts"`

	// Symbol is the wire form of Product for JSON consumers.
	Symbol string `json:"product"`
}

// TradeSink consumes executed trades (market-data hub, Kafka publisher).
// Publish must not block the matching path for long; failures are logged by
// the registry and never abort the match.
type TradeSink interface {
	PublishTrade(Trade) error
}

// tradeHistory is a bounded ring of the most recent trades, newest last.
type tradeHistory struct {
	trades []Trade
	limit  int
}

func newTradeHistory(limit int) *tradeHistory {
	if limit <= 0 {
		limit = 256
	}
	return &tradeHistory{limit: limit}
}

func (h *tradeHistory) record(t Trade) {
	h.trades = append(h.trades, t)
	if len(h.trades) > h.limit {
		h.trades = h.trades[len(h.trades)-h.limit:]
	}
}

func (h *tradeHistory) recent(limit int) []Trade {
	n := len(h.trades)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Trade, n)
	copy(out, h.trades[len(h.trades)-n:])
	return out
}
