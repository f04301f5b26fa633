package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
)

var (
	ErrTruncatedFrame   = errors.New("frame: truncated frame")
	ErrInvalidFrameEnd  = errors.New("frame: invalid frame end marker")
	ErrUnknownFrameType = errors.New("frame: unknown frame type")
	ErrUnknownMethod    = errors.New("frame: unknown method")
)

// Source is the side of the connection that produced a message.
type Source uint8

const (
	SourceClient Source = iota
	SourceServer
)

func (s Source) String() string {
	if s == SourceServer {
		return "SERVER"
	}
	return "CLIENT"
}

// ParseSource accepts "client"/"server" in any case, and the C/S shorthands.
func ParseSource(raw string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client", "c":
		return SourceClient, nil
	case "server", "s":
		return SourceServer, nil
	default:
		return 0, fmt.Errorf("frame: unknown source %q", raw)
	}
}

// Kind is the wire-level unit type.
type Kind uint8

const (
	KindProtocolHeader Kind = 0
	KindMethod         Kind = Kind(spec.FrameMethod)
	KindHeader         Kind = Kind(spec.FrameHeader)
	KindBody           Kind = Kind(spec.FrameBody)
	KindHeartbeat      Kind = Kind(spec.FrameHeartbeat)
)

func (k Kind) String() string {
	switch k {
	case KindProtocolHeader:
		return "PROTOCOL_HEADER"
	case KindMethod:
		return "METHOD"
	case KindHeader:
		return "HEADER"
	case KindBody:
		return "BODY"
	case KindHeartbeat:
		return "HEARTBEAT"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
	}
}

// Canonical names for non-method units.
const (
	NameProtocolHeader = "protocol-header"
	NameBody           = "BODY"
	NameHeartbeat      = "HEARTBEAT"
	headerSuffix       = ".HEADER"
)

// Message is either a *Frame or a *ProtocolHeader. The matcher only looks at
// Source and Method.
type Message interface {
	Source() Source
	Kind() Kind
	// Method is the canonical name, e.g. "connection.start-ok", "basic.HEADER", "BODY".
	Method() string
	OutOfOrder() bool
	MarkOutOfOrder()
}

// ProtocolHeader is the client preamble "AMQP" id major minor revision.
type ProtocolHeader struct {
	ProtocolID uint8
	Major      uint8
	Minor      uint8
	Revision   uint8

	outOfOrder bool
}

func (h *ProtocolHeader) Source() Source { return SourceClient }
func (h *ProtocolHeader) Kind() Kind { return KindProtocolHeader }
func (h *ProtocolHeader) Method() string { return NameProtocolHeader }
func (h *ProtocolHeader) OutOfOrder() bool { return h.outOfOrder }
func (h *ProtocolHeader) MarkOutOfOrder() { h.outOfOrder = true }
func (h *ProtocolHeader) Version() string {
	return fmt.Sprintf("%d.%d.%d", h.Major, h.Minor, h.Revision)
}

// Equal compares the preamble fields, ignoring the out-of-order flag.
func (h *ProtocolHeader) Equal(other *ProtocolHeader) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.ProtocolID == other.ProtocolID && h.Major == other.Major &&
		h.Minor == other.Minor && h.Revision == other.Revision
}

// Frame is one decoded standard frame. It is immutable apart from the
// out-of-order flag.
type Frame struct {
	source  Source
	kind    Kind
	channel uint16
	payload []byte

	classID  uint16
	methodID uint16
	name     string
	args     []byte

	weight     uint16
	bodySize   uint64
	properties []byte

	outOfOrder bool
}

// NewFrame builds a frame from its wire parts, decomposing METHOD and HEADER
// payloads. The payload is copied.
func NewFrame(source Source, kind Kind, channel uint16, payload []byte) (*Frame, error) {
	f := &Frame{
		source:  source,
		kind:    kind,
		channel: channel,
		payload: bytes.Clone(payload),
	}
	if f.payload == nil {
		f.payload = []byte{}
	}
	switch kind {
	case KindMethod:
		if err := f.parseMethod(); err != nil {
			return nil, err
		}
	case KindHeader:
		if err := f.parseHeader(); err != nil {
			return nil, err
		}
	case KindBody:
		f.name = NameBody
	case KindHeartbeat:
		f.name = NameHeartbeat
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, uint8(kind))
	}
	return f, nil
}

func (f *Frame) parseMethod() error {
	classID, rest, err := field.DecodeUint16(f.payload)
	if err != nil {
		return fmt.Errorf("method class id: %w", err)
	}
	methodID, rest, err := field.DecodeUint16(rest)
	if err != nil {
		return fmt.Errorf("method id: %w", err)
	}
	name, ok := spec.MethodName(classID, methodID)
	if !ok {
		return fmt.Errorf("%w: class=%d method=%d", ErrUnknownMethod, classID, methodID)
	}
	f.classID, f.methodID, f.name, f.args = classID, methodID, name, rest
	return nil
}

// Content header layout: class-id short, weight short, body-size long,
// then property flags and property values.
func (f *Frame) parseHeader() error {
	classID, rest, err := field.DecodeUint16(f.payload)
	if err != nil {
		return fmt.Errorf("header class id: %w", err)
	}
	weight, rest, err := field.DecodeUint16(rest)
	if err != nil {
		return fmt.Errorf("header weight: %w", err)
	}
	bodySize, rest, err := field.DecodeUint32(rest)
	if err != nil {
		return fmt.Errorf("header body size: %w", err)
	}
	className, ok := spec.ClassName(classID)
	if !ok {
		className = strconv.Itoa(int(classID))
	}
	f.classID, f.weight, f.bodySize, f.properties = classID, weight, uint64(bodySize), rest
	f.name = className + headerSuffix
	return nil
}

func (f *Frame) Source() Source { return f.source }
func (f *Frame) Kind() Kind { return f.kind }
func (f *Frame) Method() string { return f.name }
func (f *Frame) OutOfOrder() bool { return f.outOfOrder }
func (f *Frame) MarkOutOfOrder() { f.outOfOrder = true }

func (f *Frame) Channel() uint16 { return f.channel }

// Payload returns the raw frame payload. Callers must not modify it.
func (f *Frame) Payload() []byte { return f.payload }

// ClassID is set for METHOD and HEADER frames.
func (f *Frame) ClassID() uint16 { return f.classID }

// MethodID is set for METHOD frames.
func (f *Frame) MethodID() uint16 { return f.methodID }

// Args returns the undecoded method arguments of a METHOD frame.
func (f *Frame) Args() []byte { return f.args }

func (f *Frame) Weight() uint16 { return f.weight }
func (f *Frame) BodySize() uint64 { return f.bodySize }

// Properties returns the undecoded property flags and values of a HEADER frame.
func (f *Frame) Properties() []byte { return f.properties }

// Equal compares source, type, channel and payload.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.source == other.source && f.kind == other.kind &&
		f.channel == other.channel && bytes.Equal(f.payload, other.payload)
}

// IsHeartbeat reports whether m is a heartbeat frame.
func IsHeartbeat(m Message) bool {
	return m != nil && m.Kind() == KindHeartbeat
}
