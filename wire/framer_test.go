package wire

import (
	"testing"
)

func drain(f *Framer) [][]byte {
	var frames [][]byte
	for {
		fr := f.Next()
		if fr == nil {
			return frames
		}
		cp := make([]byte, len(fr))
		copy(cp, fr)
		frames = append(frames, cp)
	}
}

func sampleStream() []byte {
	var b []byte
	b = AppendAddOrder(b, 1, 10, SideBuy, 10000, 5)
	b = AppendCancelOrder(b, 2, 10)
	b = AppendModifyOrder(b, 3, 11, 10050, 7)
	b = AppendHeartbeat(b, 4)
	b = AppendReset(b, 5)
	return b
}

func TestFramerWholeChunk(t *testing.T) {
	var f Framer
	f.Write(sampleStream())
	frames := drain(&f)
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames got %d", len(frames))
	}
	if f.Buffered() != 0 {
		t.Fatalf("expected empty buffer, %d bytes left", f.Buffered())
	}
}

// Feeding the stream byte-by-byte must yield the same frames as one chunk.
func TestFramerChunkBoundaryIndependence(t *testing.T) {
	stream := sampleStream()

	var whole Framer
	whole.Write(stream)
	want := drain(&whole)

	var split Framer
	var got [][]byte
	for i := range stream {
		split.Write(stream[i : i+1])
		got = append(got, drain(&split)...)
	}

	if len(got) != len(want) {
		t.Fatalf("split decode yielded %d frames, whole yielded %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Fatalf("frame %d differs between split and whole decode", i)
		}
	}
}

func TestFramerShortInput(t *testing.T) {
	var f Framer
	frame := AppendAddOrder(nil, 1, 10, SideBuy, 10000, 5)
	f.Write(frame[:AddOrderSize-1])
	if fr := f.Next(); fr != nil {
		t.Fatalf("got frame from incomplete input")
	}
	f.Write(frame[AddOrderSize-1:])
	if fr := f.Next(); fr == nil {
		t.Fatalf("expected frame after completing input")
	}
}

// A corrupted length field must cost exactly one byte per detection, and
// decoding must resume at the next valid header.
func TestFramerResync(t *testing.T) {
	garbage := []byte{0xFF, 0xFF, 0xFF} // length field decodes to 0xFFFF
	stream := append(garbage, sampleStream()...)

	var f Framer
	f.Write(stream)
	frames := drain(&f)
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames after resync, got %d", len(frames))
	}
	if f.Resyncs() != uint64(len(garbage)) {
		t.Fatalf("expected %d resync skips, got %d", len(garbage), f.Resyncs())
	}
}

func TestFramerZeroLengthDoesNotStall(t *testing.T) {
	// length < header size must also be skipped or the framer would loop
	// forever on an all-zero prefix.
	stream := append(make([]byte, 16), AppendHeartbeat(nil, 9)...)
	var f Framer
	f.Write(stream)
	frames := drain(&f)
	if len(frames) != 1 {
		t.Fatalf("expected heartbeat after zero padding, got %d frames", len(frames))
	}
	if frames[0][0] != TypeHeartbeat {
		t.Fatalf("unexpected frame type %q", frames[0][0])
	}
}
