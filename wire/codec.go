package wire

import (
	"encoding/binary"
	"fmt"
)

// ErrBadFrame reports a frame whose declared length does not match the fixed
// size for its type. After a framer resync a spurious header can pass the
// length bound check and still carry garbage, so callers drop these frames
// without treating them as fatal.
var ErrBadFrame = fmt.Errorf("wire: frame does not match message layout")

// Parse decodes one complete input-direction frame into a typed event.
// Unknown or output-direction type bytes decode to a nil event with
// ErrBadFrame.
func Parse(frame []byte) (Event, error) {
	if len(frame) < HeaderSize {
		return nil, ErrBadFrame
	}
	typ := frame[0]
	ts := binary.LittleEndian.Uint64(frame[3:11])

	switch typ {
	case TypeAddOrder:
		if len(frame) != AddOrderSize {
			return nil, ErrBadFrame
		}
		return AddOrder{
			Timestamp: ts,
			OrderID:   binary.LittleEndian.Uint64(frame[11:19]),
			UserID:    binary.LittleEndian.Uint64(frame[19:27]),
			Side:      frame[27],
			Price:     int64(binary.LittleEndian.Uint64(frame[28:36])),
			Quantity:  int64(binary.LittleEndian.Uint64(frame[36:44])),
		}, nil
	case TypeCancelOrder:
		if len(frame) != CancelOrderSize {
			return nil, ErrBadFrame
		}
		return CancelOrder{
			Timestamp: ts,
			OrderID:   binary.LittleEndian.Uint64(frame[11:19]),
		}, nil
	case TypeModifyOrder:
		if len(frame) != ModifyOrderSize {
			return nil, ErrBadFrame
		}
		return ModifyOrder{
			Timestamp:   ts,
			OrderID:     binary.LittleEndian.Uint64(frame[11:19]),
			NewPrice:    int64(binary.LittleEndian.Uint64(frame[19:27])),
			NewQuantity: int64(binary.LittleEndian.Uint64(frame[27:35])),
		}, nil
	case TypeHeartbeat:
		if len(frame) != HeartbeatSize {
			return nil, ErrBadFrame
		}
		return Heartbeat{Timestamp: ts}, nil
	case TypeReset:
		if len(frame) != ResetSize {
			return nil, ErrBadFrame
		}
		return Reset{Timestamp: ts}, nil
	}
	return nil, ErrBadFrame
}

func putHeader(b []byte, typ byte, length int, ts uint64) {
	b[0] = typ
	binary.LittleEndian.PutUint16(b[1:3], uint16(length))
	binary.LittleEndian.PutUint64(b[3:11], ts)
}

// AppendAddOrder appends an encoded AddOrder frame to dst.
func AppendAddOrder(dst []byte, ts, orderID uint64, side byte, price, qty int64) []byte {
	var b [AddOrderSize]byte
	putHeader(b[:], TypeAddOrder, AddOrderSize, ts)
	binary.LittleEndian.PutUint64(b[11:19], orderID)
	binary.LittleEndian.PutUint64(b[19:27], 0) // reserved user id
	b[27] = side
	binary.LittleEndian.PutUint64(b[28:36], uint64(price))
	binary.LittleEndian.PutUint64(b[36:44], uint64(qty))
	return append(dst, b[:]...)
}

// AppendCancelOrder appends an encoded CancelOrder frame to dst.
func AppendCancelOrder(dst []byte, ts, orderID uint64) []byte {
	var b [CancelOrderSize]byte
	putHeader(b[:], TypeCancelOrder, CancelOrderSize, ts)
	binary.LittleEndian.PutUint64(b[11:19], orderID)
	return append(dst, b[:]...)
}

// AppendModifyOrder appends an encoded ModifyOrder frame to dst.
func AppendModifyOrder(dst []byte, ts, orderID uint64, newPrice, newQty int64) []byte {
	var b [ModifyOrderSize]byte
	putHeader(b[:], TypeModifyOrder, ModifyOrderSize, ts)
	binary.LittleEndian.PutUint64(b[11:19], orderID)
	binary.LittleEndian.PutUint64(b[19:27], uint64(newPrice))
	binary.LittleEndian.PutUint64(b[27:35], uint64(newQty))
	return append(dst, b[:]...)
}

// AppendHeartbeat appends an encoded Heartbeat frame to dst.
func AppendHeartbeat(dst []byte, ts uint64) []byte {
	var b [HeartbeatSize]byte
	putHeader(b[:], TypeHeartbeat, HeartbeatSize, ts)
	return append(dst, b[:]...)
}

// AppendReset appends an encoded Reset frame to dst.
func AppendReset(dst []byte, ts uint64) []byte {
	var b [ResetSize]byte
	putHeader(b[:], TypeReset, ResetSize, ts)
	return append(dst, b[:]...)
}
