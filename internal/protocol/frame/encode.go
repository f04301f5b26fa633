package frame

import (
	"fmt"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
)

// AppendMessage writes m in wire format.
func AppendMessage(b []byte, m Message) ([]byte, error) {
	switch v := m.(type) {
	case *ProtocolHeader:
		return AppendProtocolHeader(b, v), nil
	case *Frame:
		return AppendFrame(b, v), nil
	default:
		return nil, fmt.Errorf("frame: cannot encode %T", m)
	}
}

func AppendProtocolHeader(b []byte, h *ProtocolHeader) []byte {
	b = append(b, spec.ProtocolLiteral...)
	return append(b, h.ProtocolID, h.Major, h.Minor, h.Revision)
}

func AppendFrame(b []byte, f *Frame) []byte {
	b = append(b, uint8(f.kind))
	b = field.AppendUint16(b, f.channel)
	b = field.AppendUint32(b, uint32(len(f.payload)))
	b = append(b, f.payload...)
	return append(b, spec.FrameEnd)
}

// Encode writes msgs back to back.
func Encode(msgs []Message) ([]byte, error) {
	var out []byte
	for _, m := range msgs {
		var err error
		if out, err = AppendMessage(out, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NewMethodFrame builds a METHOD frame for a named method with encoded args.
func NewMethodFrame(source Source, channel uint16, name string, args []byte) (*Frame, error) {
	id, ok := spec.LookupMethod(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	payload := field.AppendUint16(nil, id.Class)
	payload = field.AppendUint16(payload, id.Method)
	payload = append(payload, args...)
	return NewFrame(source, KindMethod, channel, payload)
}

// NewHeaderFrame builds a content HEADER frame. props holds the property flags
// and property values.
func NewHeaderFrame(source Source, channel, classID, weight uint16, bodySize uint32, props []byte) (*Frame, error) {
	payload := field.AppendUint16(nil, classID)
	payload = field.AppendUint16(payload, weight)
	payload = field.AppendUint32(payload, bodySize)
	payload = append(payload, props...)
	return NewFrame(source, KindHeader, channel, payload)
}

func NewBodyFrame(source Source, channel uint16, body []byte) *Frame {
	f, _ := NewFrame(source, KindBody, channel, body)
	return f
}

func NewHeartbeat(source Source) *Frame {
	f, _ := NewFrame(source, KindHeartbeat, 0, nil)
	return f
}
