// replay feeds a recorded binary event file to a TCP endpoint at a
// configurable rate, standing in for a live engine.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"lob-bridge-go/wire"
)

func main() {
	file := flag.String("file", "", "binary .dat file to replay")
	addr := flag.String("addr", "localhost:9000", "target host:port")
	speed := flag.Float64("speed", 100, "speed multiplier (1=realtime-ish, 0=unthrottled)")
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

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	defer conn.Close()

	log.Printf("replaying %s to %s", *file, *addr)

	reader := bufio.NewReaderSize(f, 1<<20)
	writer := bufio.NewWriterSize(conn, 1<<16)
	start := time.Now()
	count, err := replay(reader, writer, *speed)
	if ferr := writer.Flush(); err == nil {
		err = ferr
	}
	if err != nil && err != io.EOF {
		log.Fatalf("replay stopped after %d messages: %v", count, err)
	}

	elapsed := time.Since(start)
	fmt.Printf("\nreplay complete: %d messages in %.1fs (%.0f msg/s)\n",
		count, elapsed.Seconds(), float64(count)/elapsed.Seconds())
}

func replay(r io.Reader, w io.Writer, speed float64) (int, error) {
	header := make([]byte, wire.HeaderSize)
	body := make([]byte, wire.MaxFrameSize)
	count := 0
	start := time.Now()

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.ErrUnexpectedEOF {
				return count, io.EOF
			}
			return count, err
		}
		length := int(binary.LittleEndian.Uint16(header[1:3]))
		if length < wire.HeaderSize || length > wire.MaxFrameSize {
			return count, fmt.Errorf("invalid message length %d at message %d", length, count)
		}
		if _, err := w.Write(header); err != nil {
			return count, err
		}
		if remaining := length - wire.HeaderSize; remaining > 0 {
			if _, err := io.ReadFull(r, body[:remaining]); err != nil {
				return count, fmt.Errorf("truncated message %d: %w", count, err)
			}
			if _, err := w.Write(body[:remaining]); err != nil {
				return count, err
			}
		}
		count++

		if count%10000 == 0 {
			elapsed := time.Since(start).Seconds()
			fmt.Printf("\rmessages: %d | rate: %.0f msg/s | elapsed: %.1fs",
				count, float64(count)/elapsed, elapsed)
		}
		if speed > 0 && count%100 == 0 {
			time.Sleep(time.Duration(float64(10*time.Millisecond) / speed))
		}
	}
}
