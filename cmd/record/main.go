// record connects to the engine feed and appends validated frames to a .dat
// file for later replay or inspection.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/backoff"

	"lob-bridge-go/wire"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "engine host:port")
	out := flag.String("out", "capture.dat", "output .dat file")
	flag.Parse()

	f, err := os.OpenFile(*out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("open %s: %v", *out, err)
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)
	defer w.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Factor: 1.5}
	total := 0
	for ctx.Err() == nil {
		conn, err := (&net.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, "tcp", *addr)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			delay := b.Duration()
			log.Printf("engine unavailable, retrying in %s: %v", delay, err)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		b.Reset()
		log.Printf("connected to %s, recording to %s", *addr, *out)

		n := capture(ctx, conn, w)
		total += n
		w.Flush()
		log.Printf("disconnected after %d frames (%d total)", n, total)
	}

	log.Printf("recorded %d frames", total)
}

// capture copies complete frames from conn until EOF or cancellation.
// Writing whole frames (not raw chunks) keeps the file aligned even when the
// stream needed resyncing.
func capture(ctx context.Context, conn net.Conn, w *bufio.Writer) int {
	defer conn.Close()
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
	buf := make([]byte, 64*1024)
	frames := 0
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Write(buf[:n])
			for {
				frame := framer.Next()
				if frame == nil {
					break
				}
				w.Write(frame)
				frames++
				if frames%10000 == 0 {
					log.Printf("frames: %d", frames)
				}
			}
		}
		if err != nil {
			return frames
		}
	}
}
