// Package wire implements the engine's binary feed protocol: fixed
// little-endian message layouts behind an 11-byte common header, plus the
// stream framer that cuts a raw TCP byte stream into complete messages.
package wire

// Input-direction message types (engine → bridge).
const (
	TypeAddOrder    byte = 'A'
	TypeCancelOrder byte = 'X'
	TypeModifyOrder byte = 'M'
	TypeExecute     byte = 'E'
	TypeHeartbeat   byte = 'H'
	TypeReset       byte = 'R'
)

// Output-feed message types. The bridge does not dispatch these; they are
// decoded by the offline tools that consume engine output logs.
const (
	TypeTrade     byte = 'T'
	TypeAccepted  byte = 'A'
	TypeCancelled byte = 'C'
)

// Order sides as they appear on the wire.
const (
	SideBuy  byte = 'B'
	SideSell byte = 'S'
)

// Fixed message sizes in bytes, header included.
const (
	HeaderSize      = 11
	AddOrderSize    = 44
	CancelOrderSize = 19
	ModifyOrderSize = 35
	HeartbeatSize   = 11
	ResetSize       = 11

	// Output-feed messages carry a short header: type byte plus u64
	// timestamp, no length field.
	OutHeaderSize = 9
	TradeSize     = 41
	AcceptedSize  = 34
	CancelledSize = 25

	// MaxFrameSize bounds the header length field. Anything larger means the
	// framer has lost alignment.
	MaxFrameSize = 1024
)

// Event is a decoded input-direction message. The set of implementations is
// closed: AddOrder, CancelOrder, ModifyOrder, Heartbeat and Reset.
type Event interface {
	Type() byte
}

// AddOrder places a new resting order on the book.
type AddOrder struct {
	Timestamp uint64
	OrderID   uint64
	UserID    uint64 // reserved, always 0 on encode
	Side      byte
	Price     int64
	Quantity  int64
}

// CancelOrder removes a resting order.
type CancelOrder struct {
	Timestamp uint64
	OrderID   uint64
}

// ModifyOrder reprices and resizes a resting order.
type ModifyOrder struct {
	Timestamp   uint64
	OrderID     uint64
	NewPrice    int64
	NewQuantity int64
}

// Heartbeat is a header-only keepalive.
type Heartbeat struct {
	Timestamp uint64
}

// Reset instructs consumers to discard all accumulated book state.
type Reset struct {
	Timestamp uint64
}

func (AddOrder) Type() byte    { return TypeAddOrder }
func (CancelOrder) Type() byte { return TypeCancelOrder }
func (ModifyOrder) Type() byte { return TypeModifyOrder }
func (Heartbeat) Type() byte   { return TypeHeartbeat }
func (Reset) Type() byte       { return TypeReset }

// Trade is an output-feed execution report.
type Trade struct {
	Timestamp   uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64
	Quantity    int64
}

// Accepted is an output-feed order acknowledgement.
type Accepted struct {
	Timestamp uint64
	OrderID   uint64
	Side      byte
	Price     int64
	Quantity  int64
}

// Cancelled is an output-feed cancel acknowledgement.
type Cancelled struct {
	Timestamp uint64
	OrderID   uint64
	Quantity  int64
}
