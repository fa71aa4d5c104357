package itch

import "strings"

// Message type codes matching ITCH 5.0.
type MsgType byte

const (
	MsgSystemEvent           MsgType = 'S'
	MsgStockDirectory        MsgType = 'R'
	MsgStockTradingAction    MsgType = 'H'
	MsgRegSHO                MsgType = 'Y'
	MsgParticipantPosition   MsgType = 'L'
	MsgMWCBLevels            MsgType = 'V'
	MsgMWCBStatus            MsgType = 'W'
	MsgIPOQuotingPeriod      MsgType = 'K'
	MsgLULDAuctionCollar     MsgType = 'J'
	MsgOperationalHalt       MsgType = 'h'
	MsgAddOrder              MsgType = 'A'
	MsgAddOrderMPID          MsgType = 'F'
	MsgOrderExecuted         MsgType = 'E'
	MsgOrderExecutedPrice    MsgType = 'C'
	MsgOrderCancel           MsgType = 'X'
	MsgOrderDelete           MsgType = 'D'
	MsgOrderReplace          MsgType = 'U'
	MsgTrade                 MsgType = 'P'
	MsgBrokenTrade           MsgType = 'B'
	MsgCrossTrade            MsgType = 'Q'
	MsgNOII                  MsgType = 'I'
	MsgRetailInterest        MsgType = 'N'
	MsgDirectListingCapRaise MsgType = 'O'
)

// System event codes.
const (
	EventStartOfMessages byte = 'O'
	EventStartOfSystem   byte = 'S'
	EventStartOfMarket   byte = 'Q'
	EventEndOfMarket     byte = 'M'
	EventEndOfSystem     byte = 'E'
	EventEndOfMessages   byte = 'C'
)

// Buy/sell indicator values.
const (
	SideBuy  byte = 'B'
	SideSell byte = 'S'
)

// Message is the universal decoded-message struct used throughout the
// scanner. Not all fields are used for every message type; the Type field
// says which ones carry meaning. Prices are ITCH fixed-point: unsigned
// 32-bit with 4 implied decimals.
type Message struct {
	Type         MsgType
	StockLocate  uint16
	TrackingNum  uint16
	Timestamp    int64  // nanoseconds since midnight
	Stock        string // 8-char ticker, trimmed
	OrderRef     uint64
	OrigOrderRef uint64 // for replace messages
	Side         byte   // 'B' or 'S'
	Shares       uint32
	Price        uint32 // fixed-point, 4 implied decimals
	MatchNumber  uint64
	MPID         string // 4-char market participant
	EventCode    byte   // for system events

	// Stock Directory fields
	MarketCategory      byte
	FinancialStatus     byte
	RoundLotSize        uint32
	RoundLotsOnly       byte
	IssueClassification byte
	IssueSubType        [2]byte
	Authenticity        byte
	ShortSaleThreshold  byte
	IPOFlag             byte
	LULDRefPriceTier    byte
	ETPFlag             byte
	ETPLeverageFactor   uint32
	InverseIndicator    byte

	// Stock Trading Action / Operational Halt
	TradingState byte
	Reserved     byte
	Reason       string // 4 chars, trimmed
	MarketCode   byte
	HaltAction   byte

	// Reg SHO
	RegSHOAction byte

	// Market Participant Position
	PrimaryMarketMaker byte
	MarketMakerMode    byte
	ParticipantState   byte

	// Market-Wide Circuit Breaker (levels are little-endian float64 on the wire)
	MWCBLevel1    float64
	MWCBLevel2    float64
	MWCBLevel3    float64
	BreachedLevel byte

	// IPO Quoting Period Update
	IPOReleaseTime      uint32 // seconds since midnight
	IPOReleaseQualifier byte
	IPOPrice            uint32

	// LULD Auction Collar
	CollarReferencePrice uint32
	CollarUpperPrice     uint32
	CollarLowerPrice     uint32
	CollarExtension      uint32

	// Order Executed With Price
	Printable      byte
	ExecutionPrice uint32

	// Cross Trade / NOII
	CrossShares     uint64 // Q and I carry 64-bit share counts
	CrossType       byte
	PairedShares    uint64
	ImbalanceShares uint64
	ImbalanceDir    byte
	FarPrice        uint32
	NearPrice       uint32
	ReferencePrice  uint32
	PriceVariation  byte

	// Retail Price Improvement Indicator
	InterestFlag byte

	// Direct Listing with Capital Raise
	OpenEligibility    byte
	MinAllowablePrice  uint32
	MaxAllowablePrice  uint32
	NearExecutionPrice uint32
	NearExecutionTime  uint64 // little-endian on the wire, unlike every other field
	LowerPriceCollar   uint32
	UpperPriceCollar   uint32
}

// Hour returns the integer hour bucket (0-23) of the message timestamp.
func (m *Message) Hour() int {
	return int(m.Timestamp / 3_600_000_000_000)
}

// Price4 converts a float64 price to ITCH 4-decimal fixed-point (uint32).
// e.g., 125.50 -> 1255000
func Price4(price float64) uint32 {
	return uint32(price*10000 + 0.5)
}

// Price4ToFloat converts ITCH fixed-point back to float64.
func Price4ToFloat(p uint32) float64 {
	return float64(p) / 10000
}

// PadStock right-pads a ticker to 8 bytes with spaces.
func PadStock(ticker string) [8]byte {
	var b [8]byte
	copy(b[:], ticker)
	for i := len(ticker); i < 8; i++ {
		b[i] = ' '
	}
	return b
}

// PadMPID right-pads an MPID to 4 bytes with spaces.
func PadMPID(mpid string) [4]byte {
	var b [4]byte
	copy(b[:], mpid)
	for i := len(mpid); i < 4; i++ {
		b[i] = ' '
	}
	return b
}

// TrimAlpha strips the right-space padding of a fixed-width alpha field.
func TrimAlpha(b []byte) string {
	return strings.TrimRight(string(b), " ")
}
