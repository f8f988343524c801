package exchange

// PendingOrder is an intent resting in a book, awaiting a counterparty.
// It lives in at most one book at a time and is destroyed when matched.
type PendingOrder struct {
	TraderID TraderID
	Product  Product
}

// Book is one side of the market: a FIFO sequence of pending orders in
// arrival order. There is no price, so no ordering beyond arrival exists.
//
// Book is not safe for concurrent use on its own. The Registry owns both
// books and holds its lock across the whole find-then-remove sequence, so
// the two-step FindMatch + RemoveAt stays atomic with respect to other
// intents.
type Book struct {
	orders []PendingOrder
}

// Add appends an order at the end of the queue.
func (b *Book) Add(o PendingOrder) {
	b.orders = append(b.orders, o)
}

// FindMatch scans in arrival order and returns the position of the first
// pending order for product from a trader other than excluding. Entries
// from the excluded trader never match and the scan continues past them to
// a later eligible entry.
func (b *Book) FindMatch(product Product, excluding TraderID) (int, bool) {
	for i, o := range b.orders {
		if o.Product == product && o.TraderID != excluding {
			return i, true
		}
	}
	return 0, false
}

// RemoveAt removes the entry at pos, preserving the relative order of the
// remaining entries.
func (b *Book) RemoveAt(pos int) {
	b.orders = append(b.orders[:pos], b.orders[pos+1:]...)
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// Snapshot returns a copy of the resting orders in arrival order.
func (b *Book) Snapshot() []PendingOrder {
	out := make([]PendingOrder, len(b.orders))
	copy(out, b.orders)
	return out
}
