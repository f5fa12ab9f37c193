// normalize converts Kraken L3 NDJSON into the engine's binary wire format,
// interning string order ids to sequential u64s so downstream consumers get
// dense integer keys.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"lob-bridge-go/wire"
)

const (
	priceMultiplier = 100       // price → ticks
	qtyMultiplier   = 100000000 // qty → satoshis
)

func main() {
	in := flag.String("in", "", "Kraken L3 NDJSON input file")
	out := flag.String("out", "", "binary .dat output file")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	infile, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer infile.Close()

	outfile, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer outfile.Close()

	n := newNormalizer(bufio.NewWriterSize(outfile, 1<<20))
	if err := n.run(bufio.NewScanner(infile), !*quiet); err != nil {
		log.Fatalf("normalize: %v", err)
	}
	if !*quiet {
		n.printStats(*out)
	}
}

// idMapper interns Kraken's string order ids to sequential u64s.
type idMapper struct {
	ids  map[string]uint64
	next uint64
}

func (m *idMapper) getOrCreate(krakenID string) uint64 {
	if id, ok := m.ids[krakenID]; ok {
		return id
	}
	id := m.next
	m.ids[krakenID] = id
	m.next++
	return id
}

type l3Line struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    []struct {
		Bids []l3Event `json:"bids"`
		Asks []l3Event `json:"asks"`
	} `json:"data"`
}

type l3Event struct {
	Event      string  `json:"event"` // empty in snapshots
	OrderID    string  `json:"order_id"`
	LimitPrice float64 `json:"limit_price"`
	OrderQty   float64 `json:"order_qty"`
	Timestamp  string  `json:"timestamp"`
}

type normalizer struct {
	w      *bufio.Writer
	ids    idMapper
	lines  int
	adds   int
	mods   int
	dels   int
	skips  int
	frame  []byte
	nbytes int64
}

func newNormalizer(w *bufio.Writer) *normalizer {
	return &normalizer{
		w:   w,
		ids: idMapper{ids: make(map[string]uint64)},
	}
}

func (n *normalizer) run(sc *bufio.Scanner, verbose bool) error {
	sc.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		n.lines++

		var msg l3Line
		if err := json.Unmarshal(line, &msg); err != nil {
			n.skips++
			continue
		}
		if msg.Channel != "level3" {
			n.skips++
			continue
		}

		switch msg.Type {
		case "snapshot":
			// snapshot rows carry no event field; every order is an add
			for _, bk := range msg.Data {
				for _, ev := range bk.Bids {
					n.add(ev, wire.SideBuy)
				}
				for _, ev := range bk.Asks {
					n.add(ev, wire.SideSell)
				}
			}
		case "update":
			for _, bk := range msg.Data {
				for _, ev := range bk.Bids {
					n.event(ev, wire.SideBuy)
				}
				for _, ev := range bk.Asks {
					n.event(ev, wire.SideSell)
				}
			}
		default:
			n.skips++
		}

		if verbose && n.lines%100000 == 0 {
			fmt.Printf("\r%d lines | %d events | %d unique orders",
				n.lines, n.adds+n.mods+n.dels, len(n.ids.ids))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return n.w.Flush()
}

func (n *normalizer) event(ev l3Event, side byte) {
	switch ev.Event {
	case "add":
		n.add(ev, side)
	case "modify":
		id := n.ids.getOrCreate(ev.OrderID)
		n.emit(wire.AppendModifyOrder(n.frame[:0], parseTS(ev.Timestamp), id,
			toTicks(ev.LimitPrice), toQty(ev.OrderQty)))
		n.mods++
	case "delete":
		id := n.ids.getOrCreate(ev.OrderID)
		n.emit(wire.AppendCancelOrder(n.frame[:0], parseTS(ev.Timestamp), id))
		n.dels++
	default:
		n.skips++
	}
}

func (n *normalizer) add(ev l3Event, side byte) {
	if ev.OrderID == "" {
		n.skips++
		return
	}
	id := n.ids.getOrCreate(ev.OrderID)
	n.emit(wire.AppendAddOrder(n.frame[:0], parseTS(ev.Timestamp), id, side,
		toTicks(ev.LimitPrice), toQty(ev.OrderQty)))
	n.adds++
}

func (n *normalizer) emit(frame []byte) {
	n.w.Write(frame)
	n.frame = frame[:0]
	n.nbytes += int64(len(frame))
}

func (n *normalizer) printStats(outPath string) {
	fmt.Println()
	fmt.Println("=============================================")
	fmt.Println("normalization complete")
	fmt.Printf("input lines:   %d\n", n.lines)
	fmt.Printf("  add:         %d\n", n.adds)
	fmt.Printf("  modify:      %d\n", n.mods)
	fmt.Printf("  cancel:      %d\n", n.dels)
	fmt.Printf("  skipped:     %d\n", n.skips)
	fmt.Printf("unique orders: %d\n", len(n.ids.ids))
	fmt.Printf("output:        %s (%d bytes)\n", outPath, n.nbytes)
	fmt.Println("=============================================")
}

func toTicks(price float64) int64 {
	return int64(math.Round(price * priceMultiplier))
}

func toQty(qty float64) int64 {
	return int64(math.Round(qty * qtyMultiplier))
}

// parseTS converts Kraken's RFC3339 timestamps to epoch nanoseconds; a
// malformed timestamp becomes 0 rather than dropping the event.
func parseTS(iso string) uint64 {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return 0
	}
	return uint64(t.UnixNano())
}
