package itch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Binary ITCH 5.0 decoder. Decode is the exact inverse of EncodeBinary:
// fixed offsets, big-endian integers except the flagged little-endian
// fields (MWCB levels, direct-listing near execution time).

// ErrUnknownType reports a message type byte not in the ITCH 5.0 set.
// Callers are expected to skip the frame and keep scanning.
var ErrUnknownType = errors.New("itch: unknown message type")

// ErrShortBody reports a message body shorter than its type's fixed layout.
var ErrShortBody = errors.New("itch: short message body")

// minBodyLen holds the fixed body length of each message type.
var minBodyLen = map[MsgType]int{
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

// readTimestamp reads a 6-byte big-endian nanosecond timestamp.
func readTimestamp(b []byte) int64 {
	return int64(b[0])<<40 | int64(b[1])<<32 | int64(b[2])<<24 |
		int64(b[3])<<16 | int64(b[4])<<8 | int64(b[5])
}

// Decode parses one ITCH message body (without the length prefix) into a
// Message. The returned error is ErrUnknownType for an unrecognized type
// byte and wraps ErrShortBody when the body is truncated; both leave the
// caller free to skip the frame and continue.
func Decode(body []byte) (Message, error) {
	var m Message
	if len(body) == 0 {
		return m, fmt.Errorf("%w: empty frame", ErrShortBody)
	}

	m.Type = MsgType(body[0])
	want, ok := minBodyLen[m.Type]
	if !ok {
		return m, fmt.Errorf("%w: %q (0x%02x)", ErrUnknownType, body[0], body[0])
	}
	if len(body) < want {
		return m, fmt.Errorf("%w: type %c got %d bytes, want %d", ErrShortBody, body[0], len(body), want)
	}

	m.StockLocate = binary.BigEndian.Uint16(body[1:3])
	m.TrackingNum = binary.BigEndian.Uint16(body[3:5])
	m.Timestamp = readTimestamp(body[5:11])

	switch m.Type {
	case MsgSystemEvent:
		m.EventCode = body[11]

	case MsgStockDirectory:
		m.Stock = TrimAlpha(body[11:19])
		m.MarketCategory = body[19]
		m.FinancialStatus = body[20]
		m.RoundLotSize = binary.BigEndian.Uint32(body[21:25])
		m.RoundLotsOnly = body[25]
		m.IssueClassification = body[26]
		copy(m.IssueSubType[:], body[27:29])
		m.Authenticity = body[29]
		m.ShortSaleThreshold = body[30]
		m.IPOFlag = body[31]
		m.LULDRefPriceTier = body[32]
		m.ETPFlag = body[33]
		m.ETPLeverageFactor = binary.BigEndian.Uint32(body[34:38])
		m.InverseIndicator = body[38]

	case MsgStockTradingAction:
		m.Stock = TrimAlpha(body[11:19])
		m.TradingState = body[19]
		m.Reserved = body[20]
		m.Reason = TrimAlpha(body[21:25])

	case MsgRegSHO:
		m.Stock = TrimAlpha(body[11:19])
		m.RegSHOAction = body[19]

	case MsgParticipantPosition:
		m.MPID = TrimAlpha(body[11:15])
		m.Stock = TrimAlpha(body[15:23])
		m.PrimaryMarketMaker = body[23]
		m.MarketMakerMode = body[24]
		m.ParticipantState = body[25]

	case MsgMWCBLevels:
		m.MWCBLevel1 = math.Float64frombits(binary.LittleEndian.Uint64(body[11:19]))
		m.MWCBLevel2 = math.Float64frombits(binary.LittleEndian.Uint64(body[19:27]))
		m.MWCBLevel3 = math.Float64frombits(binary.LittleEndian.Uint64(body[27:35]))

	case MsgMWCBStatus:
		m.BreachedLevel = body[11]

	case MsgIPOQuotingPeriod:
		m.Stock = TrimAlpha(body[11:19])
		m.IPOReleaseTime = binary.BigEndian.Uint32(body[19:23])
		m.IPOReleaseQualifier = body[23]
		m.IPOPrice = binary.BigEndian.Uint32(body[24:28])

	case MsgLULDAuctionCollar:
		m.Stock = TrimAlpha(body[11:19])
		m.CollarReferencePrice = binary.BigEndian.Uint32(body[19:23])
		m.CollarUpperPrice = binary.BigEndian.Uint32(body[23:27])
		m.CollarLowerPrice = binary.BigEndian.Uint32(body[27:31])
		m.CollarExtension = binary.BigEndian.Uint32(body[31:35])

	case MsgOperationalHalt:
		// 2-byte gap between the header and the stock field.
		m.Stock = TrimAlpha(body[13:21])
		m.MarketCode = body[21]
		m.HaltAction = body[22]

	case MsgAddOrder, MsgAddOrderMPID:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])
		m.Side = body[19]
		m.Shares = binary.BigEndian.Uint32(body[20:24])
		m.Stock = TrimAlpha(body[24:32])
		m.Price = binary.BigEndian.Uint32(body[32:36])
		if m.Type == MsgAddOrderMPID {
			m.MPID = TrimAlpha(body[36:40])
		}

	case MsgOrderExecuted:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])
		m.Shares = binary.BigEndian.Uint32(body[19:23])
		m.MatchNumber = binary.BigEndian.Uint64(body[23:31])

	case MsgOrderExecutedPrice:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])
		m.Shares = binary.BigEndian.Uint32(body[19:23])
		m.MatchNumber = binary.BigEndian.Uint64(body[23:31])
		m.Printable = body[31]
		m.ExecutionPrice = binary.BigEndian.Uint32(body[32:36])

	case MsgOrderCancel:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])
		m.Shares = binary.BigEndian.Uint32(body[19:23])

	case MsgOrderDelete:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])

	case MsgOrderReplace:
		m.OrigOrderRef = binary.BigEndian.Uint64(body[11:19])
		m.OrderRef = binary.BigEndian.Uint64(body[19:27])
		m.Shares = binary.BigEndian.Uint32(body[27:31])
		m.Price = binary.BigEndian.Uint32(body[31:35])

	case MsgTrade:
		m.OrderRef = binary.BigEndian.Uint64(body[11:19])
		m.Side = body[19]
		m.Shares = binary.BigEndian.Uint32(body[20:24])
		m.Stock = TrimAlpha(body[24:32])
		m.Price = binary.BigEndian.Uint32(body[32:36])
		m.MatchNumber = binary.BigEndian.Uint64(body[36:44])

	case MsgBrokenTrade:
		m.MatchNumber = binary.BigEndian.Uint64(body[11:19])

	case MsgCrossTrade:
		m.CrossShares = binary.BigEndian.Uint64(body[11:19])
		m.Stock = TrimAlpha(body[19:27])
		m.Price = binary.BigEndian.Uint32(body[27:31])
		m.MatchNumber = binary.BigEndian.Uint64(body[31:39])
		m.CrossType = body[39]

	case MsgNOII:
		m.PairedShares = binary.BigEndian.Uint64(body[11:19])
		m.ImbalanceShares = binary.BigEndian.Uint64(body[19:27])
		m.ImbalanceDir = body[27]
		m.Stock = TrimAlpha(body[28:36])
		m.FarPrice = binary.BigEndian.Uint32(body[36:40])
		m.NearPrice = binary.BigEndian.Uint32(body[40:44])
		m.ReferencePrice = binary.BigEndian.Uint32(body[44:48])
		m.CrossType = body[48]
		m.PriceVariation = body[49]

	case MsgRetailInterest:
		m.Stock = TrimAlpha(body[11:19])
		m.InterestFlag = body[19]

	case MsgDirectListingCapRaise:
		m.Stock = TrimAlpha(body[11:19])
		m.OpenEligibility = body[19]
		m.MinAllowablePrice = binary.BigEndian.Uint32(body[20:24])
		m.MaxAllowablePrice = binary.BigEndian.Uint32(body[24:28])
		m.NearExecutionPrice = binary.BigEndian.Uint32(body[28:32])
		// Little-endian, unlike every other integer field in the protocol.
		m.NearExecutionTime = binary.LittleEndian.Uint64(body[32:40])
		m.LowerPriceCollar = binary.BigEndian.Uint32(body[40:44])
		m.UpperPriceCollar = binary.BigEndian.Uint32(body[44:48])
	}

	return m, nil
}
