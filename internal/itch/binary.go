package itch

import (
	"encoding/binary"
	"math"
)

// Binary ITCH 5.0 encoder.
// Each message is prefixed with a 2-byte length (SoupBinTCP-style framing).
// Primarily used to build synthetic tapes for tests and tooling; the
// layouts are the exact mirror of decode.go.

// EncodeBinary encodes a Message into ITCH 5.0 binary format.
// Returns the encoded bytes including the 2-byte length prefix,
// or nil for an unsupported message type.
func EncodeBinary(m *Message) []byte {
	var body []byte

	switch m.Type {
	case MsgSystemEvent:
		body = encodeSystemEvent(m)
	case MsgStockDirectory:
		body = encodeStockDirectory(m)
	case MsgStockTradingAction:
		body = encodeStockTradingAction(m)
	case MsgRegSHO:
		body = encodeRegSHO(m)
	case MsgParticipantPosition:
		body = encodeParticipantPosition(m)
	case MsgMWCBLevels:
		body = encodeMWCBLevels(m)
	case MsgMWCBStatus:
		body = encodeMWCBStatus(m)
	case MsgIPOQuotingPeriod:
		body = encodeIPOQuotingPeriod(m)
	case MsgLULDAuctionCollar:
		body = encodeLULDAuctionCollar(m)
	case MsgOperationalHalt:
		body = encodeOperationalHalt(m)
	case MsgAddOrder:
		body = encodeAddOrder(m, false)
	case MsgAddOrderMPID:
		body = encodeAddOrder(m, true)
	case MsgOrderExecuted:
		body = encodeOrderExecuted(m)
	case MsgOrderExecutedPrice:
		body = encodeOrderExecutedPrice(m)
	case MsgOrderCancel:
		body = encodeOrderCancel(m)
	case MsgOrderDelete:
		body = encodeOrderDelete(m)
	case MsgOrderReplace:
		body = encodeOrderReplace(m)
	case MsgTrade:
		body = encodeTrade(m)
	case MsgBrokenTrade:
		body = encodeBrokenTrade(m)
	case MsgCrossTrade:
		body = encodeCrossTrade(m)
	case MsgNOII:
		body = encodeNOII(m)
	case MsgRetailInterest:
		body = encodeRetailInterest(m)
	case MsgDirectListingCapRaise:
		body = encodeDirectListing(m)
	default:
		return nil
	}

	// 2-byte length prefix + body
	frame := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(frame[0:2], uint16(len(body)))
	copy(frame[2:], body)
	return frame
}

// putTimestamp writes a 6-byte big-endian nanosecond timestamp.
func putTimestamp(buf []byte, nanos int64) {
	buf[0] = byte(nanos >> 40)
	buf[1] = byte(nanos >> 32)
	buf[2] = byte(nanos >> 24)
	buf[3] = byte(nanos >> 16)
	buf[4] = byte(nanos >> 8)
	buf[5] = byte(nanos)
}

// newBody allocates a message body and fills the common header:
// Type(1) + StockLocate(2) + TrackingNum(2) + Timestamp(6).
func newBody(m *Message, size int) []byte {
	buf := make([]byte, size)
	buf[0] = byte(m.Type)
	binary.BigEndian.PutUint16(buf[1:3], m.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], m.TrackingNum)
	putTimestamp(buf[5:11], m.Timestamp)
	return buf
}

// System Event (12 bytes): header + EventCode(1)
func encodeSystemEvent(m *Message) []byte {
	buf := newBody(m, 12)
	buf[11] = m.EventCode
	return buf
}

// Stock Directory (39 bytes): header + Stock(8) + MarketCategory(1) +
// FinancialStatus(1) + RoundLotSize(4) + RoundLotsOnly(1) +
// IssueClassification(1) + IssueSubType(2) + Authenticity(1) +
// ShortSaleThreshold(1) + IPOFlag(1) + LULDRefPriceTier(1) + ETPFlag(1) +
// ETPLeverageFactor(4) + InverseIndicator(1)
func encodeStockDirectory(m *Message) []byte {
	buf := newBody(m, 39)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	buf[19] = m.MarketCategory
	buf[20] = m.FinancialStatus
	binary.BigEndian.PutUint32(buf[21:25], m.RoundLotSize)
	buf[25] = m.RoundLotsOnly
	buf[26] = m.IssueClassification
	copy(buf[27:29], m.IssueSubType[:])
	buf[29] = m.Authenticity
	buf[30] = m.ShortSaleThreshold
	buf[31] = m.IPOFlag
	buf[32] = m.LULDRefPriceTier
	buf[33] = m.ETPFlag
	binary.BigEndian.PutUint32(buf[34:38], m.ETPLeverageFactor)
	buf[38] = m.InverseIndicator
	return buf
}

// Stock Trading Action (25 bytes): header + Stock(8) + TradingState(1) +
// Reserved(1) + Reason(4)
func encodeStockTradingAction(m *Message) []byte {
	buf := newBody(m, 25)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	buf[19] = m.TradingState
	buf[20] = m.Reserved
	reason := PadMPID(m.Reason)
	copy(buf[21:25], reason[:])
	return buf
}

// Reg SHO Restriction (20 bytes): header + Stock(8) + RegSHOAction(1)
func encodeRegSHO(m *Message) []byte {
	buf := newBody(m, 20)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	buf[19] = m.RegSHOAction
	return buf
}

// Market Participant Position (26 bytes): header + MPID(4) + Stock(8) +
// PrimaryMarketMaker(1) + MarketMakerMode(1) + ParticipantState(1)
func encodeParticipantPosition(m *Message) []byte {
	buf := newBody(m, 26)
	mpid := PadMPID(m.MPID)
	copy(buf[11:15], mpid[:])
	stock := PadStock(m.Stock)
	copy(buf[15:23], stock[:])
	buf[23] = m.PrimaryMarketMaker
	buf[24] = m.MarketMakerMode
	buf[25] = m.ParticipantState
	return buf
}

// MWCB Decline Levels (35 bytes): header + Level1(8) + Level2(8) + Level3(8).
// The three levels are little-endian float64, unlike every other field.
func encodeMWCBLevels(m *Message) []byte {
	buf := newBody(m, 35)
	binary.LittleEndian.PutUint64(buf[11:19], math.Float64bits(m.MWCBLevel1))
	binary.LittleEndian.PutUint64(buf[19:27], math.Float64bits(m.MWCBLevel2))
	binary.LittleEndian.PutUint64(buf[27:35], math.Float64bits(m.MWCBLevel3))
	return buf
}

// MWCB Status (12 bytes): header + BreachedLevel(1)
func encodeMWCBStatus(m *Message) []byte {
	buf := newBody(m, 12)
	buf[11] = m.BreachedLevel
	return buf
}

// IPO Quoting Period Update (28 bytes): header + Stock(8) + ReleaseTime(4) +
// ReleaseQualifier(1) + IPOPrice(4)
func encodeIPOQuotingPeriod(m *Message) []byte {
	buf := newBody(m, 28)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	binary.BigEndian.PutUint32(buf[19:23], m.IPOReleaseTime)
	buf[23] = m.IPOReleaseQualifier
	binary.BigEndian.PutUint32(buf[24:28], m.IPOPrice)
	return buf
}

// LULD Auction Collar (35 bytes): header + Stock(8) + ReferencePrice(4) +
// UpperPrice(4) + LowerPrice(4) + Extension(4)
func encodeLULDAuctionCollar(m *Message) []byte {
	buf := newBody(m, 35)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	binary.BigEndian.PutUint32(buf[19:23], m.CollarReferencePrice)
	binary.BigEndian.PutUint32(buf[23:27], m.CollarUpperPrice)
	binary.BigEndian.PutUint32(buf[27:31], m.CollarLowerPrice)
	binary.BigEndian.PutUint32(buf[31:35], m.CollarExtension)
	return buf
}

// Operational Halt (23 bytes): header + gap(2) + Stock(8) + MarketCode(1) +
// HaltAction(1). The 2-byte gap before the stock field is a layout
// irregularity of this message type.
func encodeOperationalHalt(m *Message) []byte {
	buf := newBody(m, 23)
	buf[11] = ' '
	buf[12] = ' '
	stock := PadStock(m.Stock)
	copy(buf[13:21], stock[:])
	buf[21] = m.MarketCode
	buf[22] = m.HaltAction
	return buf
}

// Add Order (36 bytes): header + OrderRef(8) + Side(1) + Shares(4) +
// Stock(8) + Price(4). With MPID (40 bytes): + Attribution(4).
func encodeAddOrder(m *Message, mpid bool) []byte {
	size := 36
	if mpid {
		size = 40
	}
	buf := newBody(m, size)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	buf[19] = m.Side
	binary.BigEndian.PutUint32(buf[20:24], m.Shares)
	stock := PadStock(m.Stock)
	copy(buf[24:32], stock[:])
	binary.BigEndian.PutUint32(buf[32:36], m.Price)
	if mpid {
		attr := PadMPID(m.MPID)
		copy(buf[36:40], attr[:])
	}
	return buf
}

// Order Executed (31 bytes): header + OrderRef(8) + Shares(4) + MatchNumber(8)
func encodeOrderExecuted(m *Message) []byte {
	buf := newBody(m, 31)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	binary.BigEndian.PutUint32(buf[19:23], m.Shares)
	binary.BigEndian.PutUint64(buf[23:31], m.MatchNumber)
	return buf
}

// Order Executed With Price (36 bytes): Order Executed + Printable(1) +
// ExecutionPrice(4)
func encodeOrderExecutedPrice(m *Message) []byte {
	buf := newBody(m, 36)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	binary.BigEndian.PutUint32(buf[19:23], m.Shares)
	binary.BigEndian.PutUint64(buf[23:31], m.MatchNumber)
	buf[31] = m.Printable
	binary.BigEndian.PutUint32(buf[32:36], m.ExecutionPrice)
	return buf
}

// Order Cancel (23 bytes): header + OrderRef(8) + CancelledShares(4)
func encodeOrderCancel(m *Message) []byte {
	buf := newBody(m, 23)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	binary.BigEndian.PutUint32(buf[19:23], m.Shares)
	return buf
}

// Order Delete (19 bytes): header + OrderRef(8)
func encodeOrderDelete(m *Message) []byte {
	buf := newBody(m, 19)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	return buf
}

// Order Replace (35 bytes): header + OrigOrderRef(8) + NewOrderRef(8) +
// Shares(4) + Price(4)
func encodeOrderReplace(m *Message) []byte {
	buf := newBody(m, 35)
	binary.BigEndian.PutUint64(buf[11:19], m.OrigOrderRef)
	binary.BigEndian.PutUint64(buf[19:27], m.OrderRef)
	binary.BigEndian.PutUint32(buf[27:31], m.Shares)
	binary.BigEndian.PutUint32(buf[31:35], m.Price)
	return buf
}

// Trade, Non-Cross (44 bytes): header + OrderRef(8) + Side(1) + Shares(4) +
// Stock(8) + Price(4) + MatchNumber(8)
func encodeTrade(m *Message) []byte {
	buf := newBody(m, 44)
	binary.BigEndian.PutUint64(buf[11:19], m.OrderRef)
	buf[19] = m.Side
	binary.BigEndian.PutUint32(buf[20:24], m.Shares)
	stock := PadStock(m.Stock)
	copy(buf[24:32], stock[:])
	binary.BigEndian.PutUint32(buf[32:36], m.Price)
	binary.BigEndian.PutUint64(buf[36:44], m.MatchNumber)
	return buf
}

// Broken Trade (19 bytes): header + MatchNumber(8)
func encodeBrokenTrade(m *Message) []byte {
	buf := newBody(m, 19)
	binary.BigEndian.PutUint64(buf[11:19], m.MatchNumber)
	return buf
}

// Cross Trade (40 bytes): header + Shares(8) + Stock(8) + CrossPrice(4) +
// MatchNumber(8) + CrossType(1)
func encodeCrossTrade(m *Message) []byte {
	buf := newBody(m, 40)
	binary.BigEndian.PutUint64(buf[11:19], m.CrossShares)
	stock := PadStock(m.Stock)
	copy(buf[19:27], stock[:])
	binary.BigEndian.PutUint32(buf[27:31], m.Price)
	binary.BigEndian.PutUint64(buf[31:39], m.MatchNumber)
	buf[39] = m.CrossType
	return buf
}

// Net Order Imbalance Indicator (50 bytes): header + PairedShares(8) +
// ImbalanceShares(8) + ImbalanceDirection(1) + Stock(8) + FarPrice(4) +
// NearPrice(4) + CurrentReferencePrice(4) + CrossType(1) + PriceVariation(1)
func encodeNOII(m *Message) []byte {
	buf := newBody(m, 50)
	binary.BigEndian.PutUint64(buf[11:19], m.PairedShares)
	binary.BigEndian.PutUint64(buf[19:27], m.ImbalanceShares)
	buf[27] = m.ImbalanceDir
	stock := PadStock(m.Stock)
	copy(buf[28:36], stock[:])
	binary.BigEndian.PutUint32(buf[36:40], m.FarPrice)
	binary.BigEndian.PutUint32(buf[40:44], m.NearPrice)
	binary.BigEndian.PutUint32(buf[44:48], m.ReferencePrice)
	buf[48] = m.CrossType
	buf[49] = m.PriceVariation
	return buf
}

// Retail Price Improvement Indicator (20 bytes): header + Stock(8) +
// InterestFlag(1)
func encodeRetailInterest(m *Message) []byte {
	buf := newBody(m, 20)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	buf[19] = m.InterestFlag
	return buf
}

// Direct Listing with Capital Raise (48 bytes): header + Stock(8) +
// OpenEligibility(1) + MinAllowablePrice(4) + MaxAllowablePrice(4) +
// NearExecutionPrice(4) + NearExecutionTime(8, little-endian) +
// LowerPriceCollar(4) + UpperPriceCollar(4)
func encodeDirectListing(m *Message) []byte {
	buf := newBody(m, 48)
	stock := PadStock(m.Stock)
	copy(buf[11:19], stock[:])
	buf[19] = m.OpenEligibility
	binary.BigEndian.PutUint32(buf[20:24], m.MinAllowablePrice)
	binary.BigEndian.PutUint32(buf[24:28], m.MaxAllowablePrice)
	binary.BigEndian.PutUint32(buf[28:32], m.NearExecutionPrice)
	binary.LittleEndian.PutUint64(buf[32:40], m.NearExecutionTime)
	binary.BigEndian.PutUint32(buf[40:44], m.LowerPriceCollar)
	binary.BigEndian.PutUint32(buf[44:48], m.UpperPriceCollar)
	return buf
}
