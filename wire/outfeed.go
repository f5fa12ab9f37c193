package wire

import "encoding/binary"

// OutEvent is a decoded output-feed message: Trade, Accepted or Cancelled.
type OutEvent interface {
	OutType() byte
}

func (Trade) OutType() byte     { return TypeTrade }
func (Accepted) OutType() byte  { return TypeAccepted }
func (Cancelled) OutType() byte { return TypeCancelled }

// OutSize returns the fixed encoded size for an output-feed type byte, or 0
// if the byte is not an output-feed type.
func OutSize(typ byte) int {
	switch typ {
	case TypeTrade:
		return TradeSize
	case TypeAccepted:
		return AcceptedSize
	case TypeCancelled:
		return CancelledSize
	}
	return 0
}

// ParseOut decodes one output-feed message. Output-feed records are not
// length-delimited; the caller slices the stream by OutSize first.
func ParseOut(rec []byte) (OutEvent, error) {
	if len(rec) < OutHeaderSize {
		return nil, ErrBadFrame
	}
	ts := binary.LittleEndian.Uint64(rec[1:9])

	switch rec[0] {
	case TypeTrade:
		if len(rec) != TradeSize {
			return nil, ErrBadFrame
		}
		return Trade{
			Timestamp:   ts,
			BuyOrderID:  binary.LittleEndian.Uint64(rec[9:17]),
			SellOrderID: binary.LittleEndian.Uint64(rec[17:25]),
			Price:       int64(binary.LittleEndian.Uint64(rec[25:33])),
			Quantity:    int64(binary.LittleEndian.Uint64(rec[33:41])),
		}, nil
	case TypeAccepted:
		if len(rec) != AcceptedSize {
			return nil, ErrBadFrame
		}
		return Accepted{
			Timestamp: ts,
			OrderID:   binary.LittleEndian.Uint64(rec[9:17]),
			Side:      rec[17],
			Price:     int64(binary.LittleEndian.Uint64(rec[18:26])),
			Quantity:  int64(binary.LittleEndian.Uint64(rec[26:34])),
		}, nil
	case TypeCancelled:
		if len(rec) != CancelledSize {
			return nil, ErrBadFrame
		}
		return Cancelled{
			Timestamp: ts,
			OrderID:   binary.LittleEndian.Uint64(rec[9:17]),
			Quantity:  int64(binary.LittleEndian.Uint64(rec[17:25])),
		}, nil
	}
	return nil, ErrBadFrame
}

// AppendTrade appends an encoded output-feed Trade record to dst.
func AppendTrade(dst []byte, ts, buyID, sellID uint64, price, qty int64) []byte {
	var b [TradeSize]byte
	b[0] = TypeTrade
	binary.LittleEndian.PutUint64(b[1:9], ts)
	binary.LittleEndian.PutUint64(b[9:17], buyID)
	binary.LittleEndian.PutUint64(b[17:25], sellID)
	binary.LittleEndian.PutUint64(b[25:33], uint64(price))
	binary.LittleEndian.PutUint64(b[33:41], uint64(qty))
	return append(dst, b[:]...)
}

// AppendAccepted appends an encoded output-feed Accepted record to dst.
func AppendAccepted(dst []byte, ts, orderID uint64, side byte, price, qty int64) []byte {
	var b [AcceptedSize]byte
	b[0] = TypeAccepted
	binary.LittleEndian.PutUint64(b[1:9], ts)
	binary.LittleEndian.PutUint64(b[9:17], orderID)
	b[17] = side
	binary.LittleEndian.PutUint64(b[18:26], uint64(price))
	binary.LittleEndian.PutUint64(b[26:34], uint64(qty))
	return append(dst, b[:]...)
}

// AppendCancelled appends an encoded output-feed Cancelled record to dst.
func AppendCancelled(dst []byte, ts, orderID uint64, qty int64) []byte {
	var b [CancelledSize]byte
	b[0] = TypeCancelled
	binary.LittleEndian.PutUint64(b[1:9], ts)
	binary.LittleEndian.PutUint64(b[9:17], orderID)
	binary.LittleEndian.PutUint64(b[17:25], uint64(qty))
	return append(dst, b[:]...)
}
