package wire

import "testing"

func TestParseAddOrder(t *testing.T) {
	frame := AppendAddOrder(nil, 123456789, 42, SideSell, -150, 7)
	ev, err := Parse(frame)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	add, ok := ev.(AddOrder)
	if !ok {
		t.Fatalf("expected AddOrder, got %T", ev)
	}
	if add.Timestamp != 123456789 || add.OrderID != 42 || add.Side != SideSell ||
		add.Price != -150 || add.Quantity != 7 || add.UserID != 0 {
		t.Fatalf("unexpected decode: %+v", add)
	}
}

func TestParseCancelOrder(t *testing.T) {
	frame := AppendCancelOrder(nil, 99, 7)
	ev, err := Parse(frame)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, ok := ev.(CancelOrder)
	if !ok || c.OrderID != 7 || c.Timestamp != 99 {
		t.Fatalf("unexpected decode: %+v (%T)", ev, ev)
	}
}

func TestParseModifyOrder(t *testing.T) {
	frame := AppendModifyOrder(nil, 5, 8, 10100, 3)
	ev, err := Parse(frame)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := ev.(ModifyOrder)
	if !ok || m.OrderID != 8 || m.NewPrice != 10100 || m.NewQuantity != 3 {
		t.Fatalf("unexpected decode: %+v (%T)", ev, ev)
	}
}

func TestParseControlEvents(t *testing.T) {
	if ev, err := Parse(AppendHeartbeat(nil, 1)); err != nil {
		t.Fatalf("heartbeat: %v", err)
	} else if _, ok := ev.(Heartbeat); !ok {
		t.Fatalf("expected Heartbeat, got %T", ev)
	}
	if ev, err := Parse(AppendReset(nil, 2)); err != nil {
		t.Fatalf("reset: %v", err)
	} else if _, ok := ev.(Reset); !ok {
		t.Fatalf("expected Reset, got %T", ev)
	}
}

// A spurious header produced by resync can declare a plausible length that
// does not match its type; those frames are dropped, not fatal.
func TestParseSizeMismatchDropped(t *testing.T) {
	frame := AppendCancelOrder(nil, 1, 7)
	frame[0] = TypeAddOrder // claims 'A' but is 19 bytes
	if _, err := Parse(frame); err == nil {
		t.Fatalf("expected ErrBadFrame for size mismatch")
	}
}

func TestParseUnknownTypeDropped(t *testing.T) {
	frame := AppendHeartbeat(nil, 1)
	frame[0] = 'Z'
	if _, err := Parse(frame); err == nil {
		t.Fatalf("expected ErrBadFrame for unknown type")
	}
}

func TestParseOutFeed(t *testing.T) {
	rec := AppendTrade(nil, 77, 1, 2, 10000, 5)
	if len(rec) != TradeSize {
		t.Fatalf("trade record is %d bytes, want %d", len(rec), TradeSize)
	}
	ev, err := ParseOut(rec)
	if err != nil {
		t.Fatalf("parse trade: %v", err)
	}
	tr, ok := ev.(Trade)
	if !ok || tr.BuyOrderID != 1 || tr.SellOrderID != 2 || tr.Price != 10000 || tr.Quantity != 5 {
		t.Fatalf("unexpected trade decode: %+v (%T)", ev, ev)
	}

	rec = AppendAccepted(nil, 78, 9, SideBuy, 10050, 3)
	ev, err = ParseOut(rec)
	if err != nil {
		t.Fatalf("parse accepted: %v", err)
	}
	if acc, ok := ev.(Accepted); !ok || acc.OrderID != 9 || acc.Side != SideBuy {
		t.Fatalf("unexpected accepted decode: %+v (%T)", ev, ev)
	}

	rec = AppendCancelled(nil, 79, 9, 3)
	ev, err = ParseOut(rec)
	if err != nil {
		t.Fatalf("parse cancelled: %v", err)
	}
	if cn, ok := ev.(Cancelled); !ok || cn.OrderID != 9 || cn.Quantity != 3 {
		t.Fatalf("unexpected cancelled decode: %+v (%T)", ev, ev)
	}
}
