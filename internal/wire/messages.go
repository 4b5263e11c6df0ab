// Package wire defines the binary command/report protocol the TCP driver
// (internal/driver) speaks to clients. It is adapted from the teacher
// repository's big-endian, fixed-header framing and has no dependency on
// internal/engine's matching semantics beyond the field types it carries.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"matchbook/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for its declared body")
)

// MessageType identifies an inbound command.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	AmendOrder
)

// ReportMessageType identifies an outbound report.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message format constants. All multi-byte integers are big-endian.
const (
	BaseMessageHeaderLen = 2 // MessageType

	// NewOrder body: OrderID(8) Side(1) Price(8) Quantity(8) Timestamp(8)
	NewOrderBodyLen = 8 + 1 + 8 + 8 + 8
	// CancelOrder body: OrderID(8)
	CancelOrderBodyLen = 8
	// AmendOrder body: OrderID(8) NewPrice(8) NewQuantity(8)
	AmendOrderBodyLen = 8 + 8 + 8

	// Report fixed header: ReportType(1) Side(1) BuyOrderID(8) SellOrderID(8)
	// Quantity(8) Price(8) ErrStrLen(2)
	ReportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 8 + 2
)

// Message is any parsed inbound command.
type Message interface {
	Type() MessageType
}

// NewOrderMessage requests a new resting order. OrderID of zero means the
// driver should mint one with uuid-derived entropy (truncated to 64 bits)
// rather than trust the client.
type NewOrderMessage struct {
	OrderID   uint64
	Side      engine.Side
	Price     engine.Ticks
	Quantity  uint64
	Timestamp uint64
}

func (NewOrderMessage) Type() MessageType { return NewOrder }

// MintOrderID fills in OrderID from a fresh UUID's low 64 bits when the
// client left it as zero.
func (m *NewOrderMessage) MintOrderID() {
	if m.OrderID != 0 {
		return
	}
	id := uuid.New()
	m.OrderID = binary.BigEndian.Uint64(id[8:16])
}

// CancelOrderMessage requests cancellation of a live order.
type CancelOrderMessage struct {
	OrderID uint64
}

func (CancelOrderMessage) Type() MessageType { return CancelOrder }

// AmendOrderMessage requests a price/quantity change to a live order.
type AmendOrderMessage struct {
	OrderID     uint64
	NewPrice    engine.Ticks
	NewQuantity uint64
}

func (AmendOrderMessage) Type() MessageType { return AmendOrder }

// Parse decodes a framed message: 2-byte MessageType header, then a
// type-specific fixed-length body.
func Parse(buf []byte) (Message, error) {
	if len(buf) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(buf[0:2]))
	body := buf[BaseMessageHeaderLen:]

	switch typeOf {
	case NewOrder:
		if len(body) < NewOrderBodyLen {
			return nil, ErrMessageTooShort
		}
		m := NewOrderMessage{
			OrderID:   binary.BigEndian.Uint64(body[0:8]),
			Side:      engine.Side(body[8]),
			Price:     engine.Ticks(int64(binary.BigEndian.Uint64(body[9:17]))),
			Quantity:  binary.BigEndian.Uint64(body[17:25]),
			Timestamp: binary.BigEndian.Uint64(body[25:33]),
		}
		return m, nil
	case CancelOrder:
		if len(body) < CancelOrderBodyLen {
			return nil, ErrMessageTooShort
		}
		return CancelOrderMessage{OrderID: binary.BigEndian.Uint64(body[0:8])}, nil
	case AmendOrder:
		if len(body) < AmendOrderBodyLen {
			return nil, ErrMessageTooShort
		}
		return AmendOrderMessage{
			OrderID:     binary.BigEndian.Uint64(body[0:8]),
			NewPrice:    engine.Ticks(int64(binary.BigEndian.Uint64(body[8:16]))),
			NewQuantity: binary.BigEndian.Uint64(body[16:24]),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMessageType, typeOf)
	}
}

// Report is an outbound execution or error report.
type Report struct {
	Type        ReportMessageType
	Side        engine.Side
	BuyOrderID  uint64
	SellOrderID uint64
	Quantity    uint64
	Price       engine.Ticks
	Err         string
}

// Serialize packs a Report into its wire form.
func (r Report) Serialize() []byte {
	buf := make([]byte, ReportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], r.BuyOrderID)
	binary.BigEndian.PutUint64(buf[10:18], r.SellOrderID)
	binary.BigEndian.PutUint64(buf[18:26], r.Quantity)
	binary.BigEndian.PutUint64(buf[26:34], uint64(int64(r.Price)))
	binary.BigEndian.PutUint16(buf[34:36], uint16(len(r.Err)))
	copy(buf[36:], r.Err)
	return buf
}

// TradeReport builds an execution report for one side of a fill.
func TradeReport(trade engine.TradeEvent, side engine.Side) Report {
	return Report{
		Type:        ExecutionReport,
		Side:        side,
		BuyOrderID:  trade.BuyOrderID,
		SellOrderID: trade.SellOrderID,
		Quantity:    trade.Quantity,
		Price:       trade.Price,
	}
}

// ErrorReportFor builds an error report body for err.
func ErrorReportFor(err error) Report {
	return Report{Type: ErrorReport, Err: err.Error()}
}
