package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"lob-bridge-go/book"
	"lob-bridge-go/infrastructure/logger"
	"lob-bridge-go/metrics"
	"lob-bridge-go/wire"
)

func newTestHub(snapshot SnapshotFunc, mc *metrics.Collector) *Hub {
	return New(snapshot, 10*time.Millisecond, time.Second, logger.Nop(), mc)
}

func sampleBook() *book.Book {
	bk := book.New(0)
	bk.AddOrder(1, wire.SideBuy, 100, 5)
	bk.AddOrder(2, wire.SideBuy, 99, 3)
	bk.AddOrder(3, wire.SideSell, 101, 2)
	return bk
}

// An idle bridge must not serialize: ticks with zero subscribers capture
// zero snapshots.
func TestNoSnapshotWithoutSubscribers(t *testing.T) {
	var captures atomic.Int64
	bk := sampleBook()
	h := newTestHub(func() book.Snapshot {
		captures.Add(1)
		return bk.Snapshot()
	}, metrics.New(prometheus.NewRegistry()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	h.Run(ctx)

	if n := captures.Load(); n != 0 {
		t.Fatalf("expected zero snapshot captures with no subscribers, got %d", n)
	}
}

func TestMarshalSnapshotShape(t *testing.T) {
	snap := sampleBook().Snapshot()
	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)

	var decoded struct {
		Type  string     `json:"type"`
		Bids  [][2]int64 `json:"bids"`
		Asks  [][2]int64 `json:"asks"`
		Stats struct {
			Trades    uint64 `json:"trades"`
			Orders    int    `json:"orders"`
			BidLevels int    `json:"bid_levels"`
			AskLevels int    `json:"ask_levels"`
			Messages  uint64 `json:"messages"`
		} `json:"stats"`
		Timestamp float64 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, "book", decoded.Type)
	require.Equal(t, [][2]int64{{100, 5}, {99, 3}}, decoded.Bids)
	require.Equal(t, [][2]int64{{101, 2}}, decoded.Asks)
	require.Equal(t, 3, decoded.Stats.Orders)
	require.Equal(t, uint64(3), decoded.Stats.Messages)
	require.Greater(t, decoded.Timestamp, 0.0)
}

func TestSubscriberGetsImmediateSnapshotAndTicks(t *testing.T) {
	bk := sampleBook()
	mc := metrics.New(prometheus.NewRegistry())
	h := newTestHub(bk.Snapshot, mc)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// immediate snapshot on join, before any tick is due
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(first), `"type":"book"`)

	// then the regular cadence
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(second), `"type":"book"`)
}

func TestSubscriberRemovedOnDisconnect(t *testing.T) {
	bk := sampleBook()
	mc := metrics.New(prometheus.NewRegistry())
	h := newTestHub(bk.Snapshot, mc)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, h.SubscriberCount())

	conn.Close()
	for h.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 0, h.SubscriberCount())
}

// A subscriber that stops draining loses its slot; the others keep
// receiving on every tick.
func TestSlowConsumerDroppedOthersUnaffected(t *testing.T) {
	bk := sampleBook()
	mc := metrics.New(prometheus.NewRegistry())
	h := newTestHub(bk.Snapshot, mc)

	slow := &subscriber{send: make(chan []byte)} // unbuffered, never drained
	h.mu.Lock()
	h.subs[slow] = struct{}{}
	h.mu.Unlock()

	healthy := &subscriber{send: make(chan []byte, sendQueueSize)}
	h.mu.Lock()
	h.subs[healthy] = struct{}{}
	h.mu.Unlock()

	h.broadcastOnce()

	require.Equal(t, 1, h.SubscriberCount())
	require.Equal(t, 1.0, testutil.ToFloat64(mc.SubscriberDrops))

	select {
	case data := <-healthy.send:
		require.Contains(t, string(data), `"type":"book"`)
	default:
		t.Fatalf("healthy subscriber did not receive the broadcast")
	}
}
