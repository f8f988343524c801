package exchange

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the single authority over both order books and the trader
// directory. All shared mutable state of the gateway lives here.
//
// The books are guarded by one mutex held across the whole match-or-rest
// step for an intent, so two structurally opposite intents submitted
// concurrently can neither both miss each other nor both consume the same
// resting order. The directory has its own RWMutex: notification fan-out
// takes the read side, membership changes the write side, and a channel is
// only ever closed under the write lock so a concurrent broadcast can never
// send on a closed channel.
type Registry struct {
	log *zap.SugaredLogger

	mu      sync.Mutex // guards buys, sells, history
	buys    Book
	sells   Book
	history *tradeHistory

	dirMu   sync.RWMutex
	traders map[TraderID]chan string

	sinks []TradeSink // set before serving, read-only afterwards
}

func NewRegistry(log *zap.SugaredLogger, historyLimit int) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		log:     log,
		history: newTradeHistory(historyLimit),
		traders: make(map[TraderID]chan string),
	}
}

// AddSink attaches a trade consumer. Call before the gateway starts
// accepting connections.
func (r *Registry) AddSink(s TradeSink) {
	r.sinks = append(r.sinks, s)
}

// AckMessage is the acknowledgement line for a well-formed intent.
func AckMessage(p Product) string {
	return fmt.Sprintf("ACK:%s", p)
}

// TradeMessage is the broadcast line for an executed match.
func TradeMessage(p Product) string {
	return fmt.Sprintf("TRADE:%s", p)
}

// RegisterTrader inserts the trader's notification channel into the
// directory. An existing entry for the same id is silently overwritten:
// ids are transport-assigned and unique while live, so a collision means
// the prior connection is already gone.
func (r *Registry) RegisterTrader(id TraderID, ch chan string) {
	r.dirMu.Lock()
	r.traders[id] = ch
	r.dirMu.Unlock()
}

// RemoveTrader deletes the directory entry and closes its channel. The
// trader's resting orders are left in the books and stay matchable; the
// resulting notifications for a gone trader are dropped by the no-op send
// path.
func (r *Registry) RemoveTrader(id TraderID) {
	r.dirMu.Lock()
	if ch, ok := r.traders[id]; ok {
		delete(r.traders, id)
		close(ch)
	}
	r.dirMu.Unlock()
}

// TraderCount returns the number of live directory entries.
func (r *Registry) TraderCount() int {
	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	return len(r.traders)
}

// Confirm acknowledges receipt of a well-formed intent to its submitter.
// A trader that already disconnected is a silent no-op, not an error.
func (r *Registry) Confirm(id TraderID, p Product) {
	r.sendTo(id, AckMessage(p))
}

// SendError delivers a protocol error line to the offending trader only.
func (r *Registry) SendError(id TraderID, msg string) {
	r.sendTo(id, msg)
}

// InformAll broadcasts the trade notification to every registered trader.
// Each recipient gets an independent non-blocking send: a full channel
// means that one trader misses the line, delivery to the others proceeds.
func (r *Registry) InformAll(p Product) {
	msg := TradeMessage(p)
	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	for id, ch := range r.traders {
		select {
		case ch <- msg:
		default:
			r.log.Warnw("notify_dropped", "trader", id, "msg", msg)
		}
	}
}

func (r *Registry) sendTo(id TraderID, msg string) {
	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	ch, ok := r.traders[id]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		r.log.Warnw("notify_dropped", "trader", id, "msg", msg)
	}
}

// TryTradeWith attempts to match the intent against the opposite book,
// excluding the submitter's own resting orders. On success the matched
// entry is removed and its product returned.
func (r *Registry) TryTradeWith(in Intent) (Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maker, ok := r.tryTradeLocked(in)
	return maker.Product, ok
}

// RegisterOrder rests the intent on its own side's book.
func (r *Registry) RegisterOrder(in Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(in)
}

// Execute performs the single logical step for one incoming intent: match
// against the opposite book or rest on the own book, under one critical
// section. On match the trade is recorded and fanned out to the sinks.
func (r *Registry) Execute(in Intent) (Product, bool) {
	r.mu.Lock()
	maker, ok := r.tryTradeLocked(in)
	var trade Trade
	if ok {
		trade = r.recordLocked(in, maker)
	} else {
		r.registerLocked(in)
	}
	r.mu.Unlock()

	if ok {
		for _, s := range r.sinks {
			if err := s.PublishTrade(trade); err != nil {
				r.log.Warnw("trade_sink_failed", "product", trade.Symbol, "err", err)
			}
		}
	}
	return maker.Product, ok
}

func (r *Registry) tryTradeLocked(in Intent) (PendingOrder, bool) {
	book := &r.sells
	if in.Action == Sell {
		book = &r.buys
	}
	pos, ok := book.FindMatch(in.Product, in.TraderID)
	if !ok {
		return PendingOrder{}, false
	}
	maker := book.orders[pos]
	book.RemoveAt(pos)
	return maker, true
}

func (r *Registry) registerLocked(in Intent) {
	order := PendingOrder{TraderID: in.TraderID, Product: in.Product}
	if in.Action == Buy {
		r.buys.Add(order)
	} else {
		r.sells.Add(order)
	}
}

func (r *Registry) recordLocked(taker Intent, maker PendingOrder) Trade {
	buyer, seller := taker.TraderID, maker.TraderID
	if taker.Action == Sell {
		buyer, seller = seller, buyer
	}
	t := Trade{
		Product:   maker.Product,
		BuyerID:   buyer,
		SellerID:  seller,
		Timestamp: time.Now().UTC(),
		Symbol:    maker.Product.String(),
	}
	r.history.record(t)
	return t
}

// RecentTrades returns up to limit most recent trades, oldest first.
// limit <= 0 returns the whole retained history.
func (r *Registry) RecentTrades(limit int) []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.recent(limit)
}

// DepthEntry is the resting order count for one product.
type DepthEntry struct {
	Product string `json:"product"`
	Buys    int    `json:"buys"`
	Sells   int    `json:"sells"`
}

// Depth reports resting order counts per product, catalog order.
func (r *Registry) Depth() []DepthEntry {
	r.mu.Lock()
	buys := r.buys.Snapshot()
	sells := r.sells.Snapshot()
	r.mu.Unlock()

	out := make([]DepthEntry, 0, len(Products()))
	for _, p := range Products() {
		e := DepthEntry{Product: p.String()}
		for _, o := range buys {
			if o.Product == p {
				e.Buys++
			}
		}
		for _, o := range sells {
			if o.Product == p {
				e.Sells++
			}
		}
		out = append(out, e)
	}
	return out
}
