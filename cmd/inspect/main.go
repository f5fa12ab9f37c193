// inspect reads a binary event file offline and prints per-type counts,
// timing statistics and optionally the first messages in full.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"lob-bridge-go/wire"
)

func main() {
	file := flag.String("file", "", "binary .dat file to inspect")
	limit := flag.Int("limit", 0, "dump the first N decoded messages")
	outFeed := flag.Bool("out", false, "file holds output-feed records (trades/acks)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var st stats
	if *outFeed {
		err = inspectOutFeed(r, *limit, &st)
	} else {
		err = inspectInputFeed(r, *limit, &st)
	}
	if err != nil && err != io.EOF {
		log.Printf("stopped early: %v", err)
	}
	st.print()
}

type stats struct {
	counts   map[byte]int
	total    int
	bytes    int64
	firstTS  uint64
	lastTS   uint64
	dropped  int
	resyncOK uint64
}

func (s *stats) note(typ byte, size int, ts uint64) {
	if s.counts == nil {
		s.counts = make(map[byte]int)
	}
	s.counts[typ]++
	s.total++
	s.bytes += int64(size)
	if s.firstTS == 0 || ts < s.firstTS {
		s.firstTS = ts
	}
	if ts > s.lastTS {
		s.lastTS = ts
	}
}

func (s *stats) print() {
	fmt.Println("=============================================")
	fmt.Printf("messages: %d (%d bytes)\n", s.total, s.bytes)
	for typ, n := range s.counts {
		fmt.Printf("  %c: %d\n", typ, n)
	}
	if s.dropped > 0 {
		fmt.Printf("  undecodable: %d\n", s.dropped)
	}
	if s.resyncOK > 0 {
		fmt.Printf("  resync byte skips: %d\n", s.resyncOK)
	}
	if s.lastTS > s.firstTS && s.total > 1 {
		spanSec := float64(s.lastTS-s.firstTS) / 1e9
		fmt.Printf("time span: %.3fs (%.0f msg/s)\n", spanSec, float64(s.total)/spanSec)
	}
	fmt.Println("=============================================")
}

func inspectInputFeed(r io.Reader, limit int, st *stats) error {
	var framer wire.Framer
	buf := make([]byte, 64*1024)
	dumped := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			framer.Write(buf[:n])
			for {
				frame := framer.Next()
				if frame == nil {
					break
				}
				ev, perr := wire.Parse(frame)
				if perr != nil {
					st.dropped++
					continue
				}
				st.note(frame[0], len(frame), timestampOf(ev))
				if dumped < limit {
					fmt.Printf("%6d %+v\n", st.total, ev)
					dumped++
				}
			}
		}
		if err != nil {
			st.resyncOK = framer.Resyncs()
			return err
		}
	}
}

func inspectOutFeed(r io.Reader, limit int, st *stats) error {
	typ := make([]byte, 1)
	rec := make([]byte, wire.TradeSize)
	dumped := 0
	for {
		if _, err := io.ReadFull(r, typ); err != nil {
			return err
		}
		size := wire.OutSize(typ[0])
		if size == 0 {
			st.dropped++
			continue // skip a byte, same recovery as the stream framer
		}
		rec[0] = typ[0]
		if _, err := io.ReadFull(r, rec[1:size]); err != nil {
			return err
		}
		ev, perr := wire.ParseOut(rec[:size])
		if perr != nil {
			st.dropped++
			continue
		}
		st.note(typ[0], size, outTimestampOf(ev))
		if dumped < limit {
			fmt.Printf("%6d %+v\n", st.total, ev)
			dumped++
		}
	}
}

func timestampOf(ev wire.Event) uint64 {
	switch m := ev.(type) {
	case wire.AddOrder:
		return m.Timestamp
	case wire.CancelOrder:
		return m.Timestamp
	case wire.ModifyOrder:
		return m.Timestamp
	case wire.Heartbeat:
		return m.Timestamp
	case wire.Reset:
		return m.Timestamp
	}
	return 0
}

func outTimestampOf(ev wire.OutEvent) uint64 {
	switch m := ev.(type) {
	case wire.Trade:
		return m.Timestamp
	case wire.Accepted:
		return m.Timestamp
	case wire.Cancelled:
		return m.Timestamp
	}
	return 0
}
