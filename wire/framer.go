package wire

import "encoding/binary"

// Framer accumulates raw stream bytes and cuts them into complete,
// length-delimited frames.
//
// A header length outside [HeaderSize, MaxFrameSize] means the stream is
// corrupt or the framer is misaligned; the framer discards exactly one byte
// and retries at the new offset. This is a best-effort heuristic with no
// bound on how long recovery takes, not a guarantee.
type Framer struct {
	buf     []byte
	resyncs uint64
}

// Write appends stream bytes to the internal buffer.
func (f *Framer) Write(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete frame, or nil if more input is needed.
// The returned slice is only valid until the next call to Write.
func (f *Framer) Next() []byte {
	for len(f.buf) >= HeaderSize {
		length := int(binary.LittleEndian.Uint16(f.buf[1:3]))
		if length < HeaderSize || length > MaxFrameSize {
			f.buf = f.buf[1:]
			f.resyncs++
			continue
		}
		if len(f.buf) < length {
			return nil
		}
		frame := f.buf[:length]
		f.buf = f.buf[length:]
		return frame
	}
	return nil
}

// Resyncs reports how many bytes have been discarded recovering from bad
// length fields.
func (f *Framer) Resyncs() uint64 {
	return f.resyncs
}

// Buffered reports how many bytes are waiting for a complete frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
