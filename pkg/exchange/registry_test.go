package exchange

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func depthFor(r *Registry, p Product) (buys, sells int) {
	for _, e := range r.Depth() {
		if e.Product == p.String() {
			return e.Buys, e.Sells
		}
	}
	return 0, 0
}

func TestRegisterOrderSides(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.RegisterOrder(Intent{TraderID: 1, Action: Buy, Product: Apple})
	r.RegisterOrder(Intent{TraderID: 2, Action: Sell, Product: Apple})

	buys, sells := depthFor(r, Apple)
	if buys != 1 || sells != 1 {
		t.Errorf("depth = %d buys / %d sells, want 1/1", buys, sells)
	}
}

func TestTryTradeWithEitherOrder(t *testing.T) {
	t.Run("buy rests then sell matches", func(t *testing.T) {
		r := NewRegistry(nil, 0)
		r.RegisterOrder(Intent{TraderID: 1, Action: Buy, Product: Apple})

		p, ok := r.TryTradeWith(Intent{TraderID: 2, Action: Sell, Product: Apple})
		if !ok || p != Apple {
			t.Fatalf("TryTradeWith = (%v, %v), want (Apple, true)", p, ok)
		}
	})

	t.Run("sell rests then buy matches", func(t *testing.T) {
		r := NewRegistry(nil, 0)
		r.RegisterOrder(Intent{TraderID: 1, Action: Sell, Product: Apple})

		p, ok := r.TryTradeWith(Intent{TraderID: 2, Action: Buy, Product: Apple})
		if !ok || p != Apple {
			t.Fatalf("TryTradeWith = (%v, %v), want (Apple, true)", p, ok)
		}
	})

	t.Run("no counterparty", func(t *testing.T) {
		r := NewRegistry(nil, 0)
		if _, ok := r.TryTradeWith(Intent{TraderID: 2, Action: Buy, Product: Apple}); ok {
			t.Fatal("match without any resting order")
		}
	})
}

func TestExecuteMatchEmptiesBooks(t *testing.T) {
	r := NewRegistry(nil, 0)

	if _, ok := r.Execute(Intent{TraderID: 1, Action: Buy, Product: Pear}); ok {
		t.Fatal("first intent must rest, not match")
	}
	p, ok := r.Execute(Intent{TraderID: 2, Action: Sell, Product: Pear})
	if !ok || p != Pear {
		t.Fatalf("Execute = (%v, %v), want (Pear, true)", p, ok)
	}

	buys, sells := depthFor(r, Pear)
	if buys != 0 || sells != 0 {
		t.Errorf("books not empty after match: %d buys, %d sells", buys, sells)
	}
}

func TestExecuteSelfTradeRests(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.Execute(Intent{TraderID: 9, Action: Buy, Product: Onion})
	if _, ok := r.Execute(Intent{TraderID: 9, Action: Sell, Product: Onion}); ok {
		t.Fatal("self-trade must never match")
	}

	buys, sells := depthFor(r, Onion)
	if buys != 1 || sells != 1 {
		t.Errorf("depth = %d buys / %d sells, want both resting", buys, sells)
	}
}

func TestExecuteNonMatchSendsNothing(t *testing.T) {
	r := NewRegistry(nil, 0)
	ch := make(chan string, 4)
	r.RegisterTrader(5, ch)

	r.Execute(Intent{TraderID: 5, Action: Buy, Product: Tomato})

	select {
	case msg := <-ch:
		t.Errorf("unexpected notification %q for a resting order", msg)
	default:
	}

	buys, _ := depthFor(r, Tomato)
	if buys != 1 {
		t.Errorf("resting buys = %d, want 1", buys)
	}
}

func TestFIFOTieBreak(t *testing.T) {
	r := NewRegistry(nil, 0)
	r.Execute(Intent{TraderID: 11, Action: Sell, Product: Potato})
	r.Execute(Intent{TraderID: 12, Action: Sell, Product: Potato})

	if _, ok := r.Execute(Intent{TraderID: 13, Action: Buy, Product: Potato}); !ok {
		t.Fatal("expected a match")
	}

	trades := r.RecentTrades(0)
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].SellerID != 11 {
		t.Errorf("matched seller = %d, want first-arrived 11", trades[0].SellerID)
	}
	if trades[0].BuyerID != 13 {
		t.Errorf("buyer = %d, want 13", trades[0].BuyerID)
	}

	_, sells := depthFor(r, Potato)
	if sells != 1 {
		t.Errorf("resting sells = %d, want the later one left", sells)
	}
}

func TestConfirmAndRemoveTrader(t *testing.T) {
	r := NewRegistry(nil, 0)
	ch := make(chan string, 4)
	r.RegisterTrader(21, ch)

	r.Confirm(21, Onion)
	if got := <-ch; got != "ACK:ONION" {
		t.Fatalf("confirm delivered %q, want ACK:ONION", got)
	}

	r.RemoveTrader(21)
	if _, open := <-ch; open {
		t.Fatal("channel must be closed on removal")
	}

	// Both are silent no-ops for a gone trader.
	r.Confirm(21, Onion)
	r.SendError(21, "boom")
	r.InformAll(Onion)
}

func TestInformAllBroadcast(t *testing.T) {
	r := NewRegistry(nil, 0)
	chans := make(map[TraderID]chan string)
	for _, id := range []TraderID{1, 2, 3} {
		ch := make(chan string, 4)
		chans[id] = ch
		r.RegisterTrader(id, ch)
	}

	r.InformAll(Apple)

	for id, ch := range chans {
		select {
		case got := <-ch:
			if got != "TRADE:APPLE" {
				t.Errorf("trader %d received %q, want TRADE:APPLE", id, got)
			}
		default:
			t.Errorf("trader %d missed the broadcast", id)
		}
	}
}

func TestInformAllSkipsFullChannel(t *testing.T) {
	r := NewRegistry(nil, 0)
	full := make(chan string) // no capacity, nobody reading
	ok := make(chan string, 1)
	r.RegisterTrader(1, full)
	r.RegisterTrader(2, ok)

	r.InformAll(Pear)

	select {
	case got := <-ok:
		if got != "TRADE:PEAR" {
			t.Errorf("received %q, want TRADE:PEAR", got)
		}
	default:
		t.Error("healthy trader must still receive the broadcast")
	}
}

func TestConcurrentPairsMatchExactlyOnce(t *testing.T) {
	const pairs = 32
	r := NewRegistry(nil, pairs)

	var matches atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		buyer := TraderID(1000 + i)
		seller := TraderID(2000 + i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, ok := r.Execute(Intent{TraderID: buyer, Action: Buy, Product: Onion}); ok {
				matches.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if _, ok := r.Execute(Intent{TraderID: seller, Action: Sell, Product: Onion}); ok {
				matches.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := matches.Load(); got != pairs {
		t.Errorf("matches = %d, want exactly %d", got, pairs)
	}
	buys, sells := depthFor(r, Onion)
	if buys != 0 || sells != 0 {
		t.Errorf("books not empty: %d buys, %d sells", buys, sells)
	}
	if got := len(r.RecentTrades(0)); got != pairs {
		t.Errorf("recorded trades = %d, want %d", got, pairs)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	trades []Trade
	fail   bool
}

func (s *recordingSink) PublishTrade(t Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.trades = append(s.trades, t)
	return nil
}

func TestTradeSinksReceiveMatches(t *testing.T) {
	r := NewRegistry(nil, 0)
	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	r.AddSink(broken)
	r.AddSink(healthy)

	r.Execute(Intent{TraderID: 1, Action: Sell, Product: Apple})
	if _, ok := r.Execute(Intent{TraderID: 2, Action: Buy, Product: Apple}); !ok {
		t.Fatal("expected a match")
	}

	healthy.mu.Lock()
	defer healthy.mu.Unlock()
	if len(healthy.trades) != 1 {
		t.Fatalf("healthy sink saw %d trades, want 1", len(healthy.trades))
	}
	got := healthy.trades[0]
	if got.Symbol != "APPLE" || got.BuyerID != 2 || got.SellerID != 1 {
		t.Errorf("trade = %+v, want APPLE buyer 2 seller 1", got)
	}
}

func TestRecentTradesBounded(t *testing.T) {
	r := NewRegistry(nil, 2)
	for i := 0; i < 4; i++ {
		r.Execute(Intent{TraderID: TraderID(10 + i), Action: Sell, Product: Apple})
		r.Execute(Intent{TraderID: TraderID(20 + i), Action: Buy, Product: Apple})
	}

	trades := r.RecentTrades(0)
	if len(trades) != 2 {
		t.Fatalf("retained trades = %d, want history limit 2", len(trades))
	}
	if got := r.RecentTrades(1); len(got) != 1 {
		t.Errorf("RecentTrades(1) = %d entries, want 1", len(got))
	}
}
