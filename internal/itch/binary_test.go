package itch

import (
	"encoding/binary"
	"testing"
)

// bodyLens pins the fixed frame body length of every message type.
var bodyLens = map[MsgType]int{
	MsgSystemEvent:           12,
	MsgStockDirectory:        39,
	MsgStockTradingAction:    25,
	MsgRegSHO:                20,
	MsgParticipantPosition:   26,
	MsgMWCBLevels:            35,
	MsgMWCBStatus:            12,
	MsgIPOQuotingPeriod:      28,
	MsgLULDAuctionCollar:     35,
	MsgOperationalHalt:       23,
	MsgAddOrder:              36,
	MsgAddOrderMPID:          40,
	MsgOrderExecuted:         31,
	MsgOrderExecutedPrice:    36,
	MsgOrderCancel:           23,
	MsgOrderDelete:           19,
	MsgOrderReplace:          35,
	MsgTrade:                 44,
	MsgBrokenTrade:           19,
	MsgCrossTrade:            40,
	MsgNOII:                  50,
	MsgRetailInterest:        20,
	MsgDirectListingCapRaise: 48,
}

func TestEncodeBinaryLengths(t *testing.T) {
	for typ, want := range bodyLens {
		m := &Message{Type: typ, Stock: "AAPL", MPID: "GSCO", Reason: "T1"}
		data := EncodeBinary(m)
		if data == nil {
			t.Fatalf("EncodeBinary returned nil for %c", typ)
		}
		bodyLen := int(binary.BigEndian.Uint16(data[0:2]))
		if bodyLen != want {
			t.Errorf("%c body length = %d, want %d", typ, bodyLen, want)
		}
		if len(data) != 2+want {
			t.Errorf("%c frame length = %d, want %d", typ, len(data), 2+want)
		}
		if data[2] != byte(typ) {
			t.Errorf("%c type byte = %c", typ, data[2])
		}
	}
}

func TestEncodeBinaryUnknownType(t *testing.T) {
	m := &Message{Type: 'z'}
	if data := EncodeBinary(m); data != nil {
		t.Fatalf("expected nil for unknown type, got %d bytes", len(data))
	}
}

func TestEncodeBinaryAddOrderFields(t *testing.T) {
	m := &Message{
		Type: MsgAddOrder, StockLocate: 7, Timestamp: 123456789,
		OrderRef: 100, Side: SideBuy, Shares: 500, Stock: "AAPL", Price: Price4(125.50),
	}
	data := EncodeBinary(m)

	// Stock at body offset 24 (frame offset 26), space-padded to 8.
	if got := string(data[26:34]); got != "AAPL    " {
		t.Errorf("stock = %q, want %q", got, "AAPL    ")
	}
	// Price at body offset 32 (frame offset 34).
	if got := binary.BigEndian.Uint32(data[34:38]); got != 1255000 {
		t.Errorf("price = %d, want 1255000", got)
	}
}

func TestEncodeBinaryOperationalHaltGap(t *testing.T) {
	m := &Message{Type: MsgOperationalHalt, Stock: "MSFT", MarketCode: 'Q', HaltAction: 'H'}
	data := EncodeBinary(m)

	// Body offsets 11 and 12 are the layout gap; stock starts at 13.
	if data[13] != ' ' || data[14] != ' ' {
		t.Errorf("gap bytes = %q %q, want spaces", data[13], data[14])
	}
	if got := string(data[15:23]); got != "MSFT    " {
		t.Errorf("stock = %q, want %q", got, "MSFT    ")
	}
}

func TestPrice4RoundTrip(t *testing.T) {
	cases := []struct {
		f   float64
		raw uint32
	}{
		{125.50, 1255000},
		{0.0001, 1},
		{150.0, 1500000},
		{0, 0},
	}
	for _, c := range cases {
		if got := Price4(c.f); got != c.raw {
			t.Errorf("Price4(%v) = %d, want %d", c.f, got, c.raw)
		}
		if got := Price4ToFloat(c.raw); got != c.f {
			t.Errorf("Price4ToFloat(%d) = %v, want %v", c.raw, got, c.f)
		}
	}
}

func TestPadStock(t *testing.T) {
	b := PadStock("AAPL")
	if string(b[:]) != "AAPL    " {
		t.Fatalf("PadStock = %q", string(b[:]))
	}
	if TrimAlpha(b[:]) != "AAPL" {
		t.Fatalf("TrimAlpha = %q", TrimAlpha(b[:]))
	}
}
