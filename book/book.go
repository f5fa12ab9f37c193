// Package book maintains the aggregated order-book state reconstructed from
// the engine's event stream and hands out immutable snapshots of it.
package book

import (
	"sort"
	"sync"
	"time"

	"lob-bridge-go/wire"
)

// TradeRingSize bounds the recent-trade buffer; the oldest entry is evicted
// once it is full.
const TradeRingSize = 100

// DefaultDepth is the number of price levels per side included in snapshots.
const DefaultDepth = 20

type order struct {
	side  byte
	price int64
	qty   int64
}

// Trade is one execution record kept in the recent-trade ring.
type Trade struct {
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64
	Quantity    int64
	Timestamp   uint64
	ReceivedAt  time.Time
}

// Level is the aggregate open quantity at one price on one side.
type Level struct {
	Price int64
	Qty   int64
}

// Stats are the summary counters captured with each snapshot.
type Stats struct {
	Trades    uint64
	Orders    int
	BidLevels int
	AskLevels int
	Messages  uint64
}

// Snapshot is an immutable point-in-time copy of the aggregated book.
type Snapshot struct {
	Bids       []Level // descending by price
	Asks       []Level // ascending by price
	Stats      Stats
	CapturedAt time.Time
}

// Book is the aggregate state shared between the ingestion path (sole
// writer) and the snapshot path. Goroutines preempt, so unlike a cooperative
// single-threaded port every mutation and capture goes through the mutex.
type Book struct {
	mu     sync.RWMutex
	orders map[uint64]order
	bids   map[int64]int64 // price -> aggregate qty
	asks   map[int64]int64

	trades     [TradeRingSize]Trade
	tradeNext  int
	tradeCount int

	totalTrades uint64
	messages    uint64

	depth int
}

// New returns an empty book. depth <= 0 falls back to DefaultDepth.
func New(depth int) *Book {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Book{
		orders: make(map[uint64]order),
		bids:   make(map[int64]int64),
		asks:   make(map[int64]int64),
		depth:  depth,
	}
}

func (b *Book) side(s byte) map[int64]int64 {
	if s == wire.SideBuy {
		return b.bids
	}
	return b.asks
}

// AddOrder inserts an open order and adds its quantity to the (side, price)
// level. Reuse of a live order id is a protocol precondition violation and is
// not defended against.
func (b *Book) AddOrder(id uint64, side byte, price, qty int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(id, side, price, qty)
	b.messages++
}

func (b *Book) addLocked(id uint64, side byte, price, qty int64) {
	b.orders[id] = order{side: side, price: price, qty: qty}
	levels := b.side(side)
	levels[price] += qty
}

// CancelOrder removes an open order and its quantity from its level,
// deleting the level when nothing remains. Unknown ids are a silent no-op.
func (b *Book) CancelOrder(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelLocked(id) {
		b.messages++
	}
}

func (b *Book) cancelLocked(id uint64) bool {
	o, ok := b.orders[id]
	if !ok {
		return false
	}
	levels := b.side(o.side)
	if _, ok := levels[o.price]; ok {
		levels[o.price] -= o.qty
		if levels[o.price] <= 0 {
			delete(levels, o.price)
		}
	}
	delete(b.orders, id)
	return true
}

// ModifyOrder reprices an open order as cancel followed by re-add on its
// original side. An unknown id cannot be applied (the side is gone) but still
// counts as a processed message, matching the upstream feed's accounting.
func (b *Book) ModifyOrder(id uint64, newPrice, newQty int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[id]; ok {
		b.cancelLocked(id)
		b.addLocked(id, o.side, newPrice, newQty)
	}
	b.messages++
}

// RecordTrade appends to the recent-trade ring, evicting the oldest entry at
// capacity. Book levels are untouched; liquidity consumption arrives as
// separate cancel/modify events.
func (b *Book) RecordTrade(buyID, sellID uint64, price, qty int64, ts uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades[b.tradeNext] = Trade{
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Price:       price,
		Quantity:    qty,
		Timestamp:   ts,
		ReceivedAt:  time.Now(),
	}
	b.tradeNext = (b.tradeNext + 1) % TradeRingSize
	if b.tradeCount < TradeRingSize {
		b.tradeCount++
	}
	b.totalTrades++
	b.messages++
}

// Reset clears orders, levels, trades and the trade counter. The
// messages-processed counter is monotonic and survives resets. Invoked on an
// explicit upstream reset event and on reconnect, so stale state is never
// presented as current.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make(map[uint64]order)
	b.bids = make(map[int64]int64)
	b.asks = make(map[int64]int64)
	b.tradeNext = 0
	b.tradeCount = 0
	b.totalTrades = 0
}

// MessagesProcessed returns the monotonic mutation counter.
func (b *Book) MessagesProcessed() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.messages
}

// Trades returns the recent-trade ring contents, oldest first.
func (b *Book) Trades() []Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Trade, 0, b.tradeCount)
	start := b.tradeNext - b.tradeCount
	if start < 0 {
		start += TradeRingSize
	}
	for i := 0; i < b.tradeCount; i++ {
		out = append(out, b.trades[(start+i)%TradeRingSize])
	}
	return out
}

// Snapshot captures the top-N levels per side with summary counters. Levels
// are kept pre-aggregated, so the cost depends on the level count, never on
// the number of open orders.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids := topLevels(b.bids, b.depth, func(a, c int64) bool { return a > c })
	asks := topLevels(b.asks, b.depth, func(a, c int64) bool { return a < c })

	return Snapshot{
		Bids: bids,
		Asks: asks,
		Stats: Stats{
			Trades:    b.totalTrades,
			Orders:    len(b.orders),
			BidLevels: len(b.bids),
			AskLevels: len(b.asks),
			Messages:  b.messages,
		},
		CapturedAt: time.Now(),
	}
}

func topLevels(levels map[int64]int64, n int, less func(a, b int64) bool) []Level {
	out := make([]Level, 0, len(levels))
	for p, q := range levels {
		out = append(out, Level{Price: p, Qty: q})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Price, out[j].Price) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
