package hub

import (
	"encoding/json"
	"time"

	"lob-bridge-go/book"
)

// Broadcast payload. Field names are fixed by the dashboard contract.
type payload struct {
	Type      string       `json:"type"`
	Bids      [][2]int64   `json:"bids"`
	Asks      [][2]int64   `json:"asks"`
	Stats     payloadStats `json:"stats"`
	Timestamp float64      `json:"timestamp"`
}

type payloadStats struct {
	Trades    uint64 `json:"trades"`
	Orders    int    `json:"orders"`
	BidLevels int    `json:"bid_levels"`
	AskLevels int    `json:"ask_levels"`
	Messages  uint64 `json:"messages"`
}

// MarshalSnapshot serializes a book snapshot into the broadcast JSON.
func MarshalSnapshot(snap book.Snapshot) ([]byte, error) {
	p := payload{
		Type:      "book",
		Bids:      levelPairs(snap.Bids),
		Asks:      levelPairs(snap.Asks),
		Timestamp: float64(snap.CapturedAt.UnixNano()) / float64(time.Second),
		Stats: payloadStats{
			Trades:    snap.Stats.Trades,
			Orders:    snap.Stats.Orders,
			BidLevels: snap.Stats.BidLevels,
			AskLevels: snap.Stats.AskLevels,
			Messages:  snap.Stats.Messages,
		},
	}
	return json.Marshal(p)
}

func levelPairs(levels []book.Level) [][2]int64 {
	out := make([][2]int64, len(levels))
	for i, l := range levels {
		out[i] = [2]int64{l.Price, l.Qty}
	}
	return out
}
