// Package feed owns the upstream engine connection: dial, read loop,
// decode→dispatch, and reconnect with exponential backoff. It is the sole
// writer of the shared book.
package feed

import (
	"context"
	"net"
	"time"

	"github.com/jpillora/backoff"

	"lob-bridge-go/book"
	"lob-bridge-go/infrastructure/logger"
	"lob-bridge-go/metrics"
	"lob-bridge-go/wire"
)

const readBufferSize = 64 * 1024

// Link maintains the connection to the engine and applies decoded events to
// the book. Transport failures are never fatal; the link reconnects forever
// until its context is cancelled.
type Link struct {
	addr    string
	book    *book.Book
	log     *logger.Logger
	mc      *metrics.Collector
	backoff *backoff.Backoff
	dialer  net.Dialer
}

// New builds a link to addr with the given reconnect schedule.
func New(addr string, bk *book.Book, min, max time.Duration, factor float64, log *logger.Logger, mc *metrics.Collector) *Link {
	return &Link{
		addr: addr,
		book: bk,
		log:  log,
		mc:   mc,
		backoff: &backoff.Backoff{
			Min:    min,
			Max:    max,
			Factor: factor,
		},
		dialer: net.Dialer{Timeout: 10 * time.Second},
	}
}

// Run drives the Disconnected→Connecting→Connected loop until ctx is
// cancelled.
func (l *Link) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.dialer.DialContext(ctx, "tcp", l.addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := l.backoff.Duration()
			l.mc.Reconnects.Inc()
			l.log.Event("engine_unavailable", map[string]interface{}{
				"addr":  l.addr,
				"retry": delay.String(),
				"error": err.Error(),
			})
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		l.backoff.Reset()
		// Drop any state from the previous connection; a book rebuilt from a
		// partial stream must not be presented as current.
		l.book.Reset()
		l.mc.EngineConnected.Set(1)
		l.log.Event("engine_connected", map[string]interface{}{"addr": l.addr})

		l.readLoop(ctx, conn)

		l.mc.EngineConnected.Set(0)
		l.mc.Reconnects.Inc()
		l.log.Event("engine_disconnected", map[string]interface{}{"addr": l.addr})

		if !sleep(ctx, l.backoff.Duration()) {
			return
		}
	}
}

// readLoop reads until EOF, error, or cancellation. No deadline is set on
// reads: a stalled upstream is indistinguishable from an idle one.
func (l *Link) readLoop(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Unblock the pending read on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var framer wire.Framer
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Write(buf[:n])
			l.drain(&framer)
		}
		if err != nil {
			return
		}
	}
}

func (l *Link) drain(framer *wire.Framer) {
	before := framer.Resyncs()
	for {
		frame := framer.Next()
		if frame == nil {
			break
		}
		l.mc.FramesTotal.Inc()
		ev, err := wire.Parse(frame)
		if err != nil {
			// Expected fallout of the resync heuristic; drop and move on.
			l.mc.DecodeDrops.Inc()
			continue
		}
		l.dispatch(ev)
	}
	if skipped := framer.Resyncs() - before; skipped > 0 {
		l.mc.Resyncs.Add(float64(skipped))
		l.log.Event("stream_resync", map[string]interface{}{"skipped": skipped})
	}
}

func (l *Link) dispatch(ev wire.Event) {
	switch m := ev.(type) {
	case wire.AddOrder:
		l.book.AddOrder(m.OrderID, m.Side, m.Price, m.Quantity)
	case wire.CancelOrder:
		l.book.CancelOrder(m.OrderID)
	case wire.ModifyOrder:
		l.book.ModifyOrder(m.OrderID, m.NewPrice, m.NewQuantity)
	case wire.Reset:
		l.book.Reset()
	case wire.Heartbeat:
		// keepalive only
	}
}

// sleep waits for d or cancellation; reports false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
