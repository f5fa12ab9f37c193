// Package hub fans aggregated book snapshots out to websocket subscribers on
// a fixed cadence and serves the dashboard asset.
package hub

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lob-bridge-go/book"
	"lob-bridge-go/infrastructure/logger"
	"lob-bridge-go/metrics"
)

// SnapshotFunc captures the current book state. Injected so the scheduler
// can be tested with a counting stub.
type SnapshotFunc func() book.Snapshot

// sendQueueSize bounds how far a subscriber may fall behind before it is
// dropped rather than allowed to throttle the cadence for others.
const sendQueueSize = 8

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the subscriber registry and the broadcast scheduler.
type Hub struct {
	snapshot     SnapshotFunc
	log          *logger.Logger
	mc           *metrics.Collector
	writeTimeout time.Duration

	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	interval time.Duration

	upgrader websocket.Upgrader
}

// New builds a hub broadcasting every interval with the given per-subscriber
// write deadline.
func New(snapshot SnapshotFunc, interval, writeTimeout time.Duration, log *logger.Logger, mc *metrics.Collector) *Hub {
	return &Hub{
		snapshot:     snapshot,
		log:          log,
		mc:           mc,
		writeTimeout: writeTimeout,
		subs:         make(map[*subscriber]struct{}),
		interval:     interval,
		upgrader: websocket.Upgrader{
			// subscribers are anonymous viewers; no origin policy
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SetInterval changes the broadcast cadence; takes effect from the next tick.
func (h *Hub) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	h.mu.Lock()
	h.interval = interval
	h.mu.Unlock()
}

func (h *Hub) currentInterval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interval
}

// Run drives the broadcast scheduler until ctx is cancelled, then closes
// every subscriber. In-flight sends may be abandoned on shutdown.
func (h *Hub) Run(ctx context.Context) {
	timer := time.NewTimer(h.currentInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-timer.C:
			h.broadcastOnce()
			timer.Reset(h.currentInterval())
		}
	}
}

// broadcastOnce captures and delivers one snapshot. With no subscribers it
// returns without touching the book, so an idle bridge does no
// serialization work.
func (h *Hub) broadcastOnce() {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	snap := h.snapshot()
	data, err := MarshalSnapshot(snap)
	if err != nil {
		h.mu.Unlock()
		h.log.LogError(err, map[string]interface{}{"component": "hub"})
		return
	}
	// One serialized payload for everyone; a subscriber that cannot keep up
	// loses its slot, never the others' tick.
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
			h.removeLocked(s, "slow_consumer")
		}
	}
	h.mu.Unlock()
	h.mc.Broadcasts.Inc()
	h.mc.MessagesProcessed.Set(float64(snap.Stats.Messages))
}

// ServeWS upgrades an HTTP request and registers the connection. The new
// subscriber gets one immediate snapshot so it never waits a full tick for
// its first view.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.LogError(err, map[string]interface{}{"component": "hub", "remote": r.RemoteAddr})
		return
	}

	s := &subscriber{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	data, err := MarshalSnapshot(h.snapshot())
	if err != nil {
		h.log.LogError(err, map[string]interface{}{"component": "hub"})
		conn.Close()
		return
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	total := len(h.subs)
	s.send <- data
	h.mu.Unlock()

	h.mc.Subscribers.Set(float64(total))
	h.log.Event("subscriber_joined", map[string]interface{}{
		"remote": conn.RemoteAddr().String(),
		"total":  total,
	})

	go h.writePump(s)
	go h.readPump(s)
}

// writePump is the only writer on the connection. It exits when the send
// channel closes (subscriber removed) or a write fails.
func (h *Hub) writePump(s *subscriber) {
	defer s.conn.Close()
	for data := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(s, "send_failure")
			return
		}
	}
}

// readPump discards inbound messages; its job is noticing the peer going
// away.
func (h *Hub) readPump(s *subscriber) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.remove(s, "closed")
			return
		}
	}
}

func (h *Hub) remove(s *subscriber, cause string) {
	h.mu.Lock()
	h.removeLocked(s, cause)
	h.mu.Unlock()
}

// removeLocked unregisters s and closes its send channel. Sends only happen
// under h.mu to registered subscribers, so close cannot race a send.
func (h *Hub) removeLocked(s *subscriber, cause string) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	total := len(h.subs)

	h.mc.Subscribers.Set(float64(total))
	if cause != "closed" {
		h.mc.SubscriberDrops.Inc()
	}
	h.log.Event("subscriber_left", map[string]interface{}{
		"cause": cause,
		"total": total,
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.send)
	}
	h.mc.Subscribers.Set(0)
}

// SubscriberCount reports current registry size.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
