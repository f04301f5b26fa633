package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
	"github.com/rs/zerolog/log"
)

// standard frame: type octet, channel short, size long
const frameHeaderLen = 7

const protocolHeaderLen = 8

// DecodeError reports where in which stream decoding stopped.
type DecodeError struct {
	Source Source
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame: decode %s stream at offset %d: %v", e.Source, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decoderState uint8

const (
	stateAwaitingPreamble decoderState = iota
	stateStandard
)

// Decoder turns one captured byte stream into messages. Client streams may
// start with a protocol header; server streams never do. A Decoder is
// forward-only and not safe for concurrent use.
type Decoder struct {
	source Source
	buf    []byte
	off    int
	state  decoderState
	err    error
}

func NewDecoder(source Source, buf []byte) *Decoder {
	d := &Decoder{source: source, buf: buf, state: stateStandard}
	if source == SourceClient {
		d.state = stateAwaitingPreamble
	}
	return d
}

// Offset is the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

// Remaining is the number of unconsumed bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Next returns the next message. It returns io.EOF once the buffer is empty at
// a frame boundary. Any other error is a *DecodeError and is sticky: the
// stream cannot be resynchronised.
func (d *Decoder) Next() (Message, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.Remaining() == 0 {
		return nil, io.EOF
	}
	start := d.off
	var (
		msg Message
		err error
	)
	if d.state == stateAwaitingPreamble {
		d.state = stateStandard
		if bytes.HasPrefix(d.buf[d.off:], []byte(spec.ProtocolLiteral)) {
			msg, err = d.readProtocolHeader()
		} else {
			msg, err = d.readFrame()
		}
	} else {
		msg, err = d.readFrame()
	}
	if err != nil {
		d.err = &DecodeError{Source: d.source, Offset: start, Err: err}
		log.Debug().
			Str("source", d.source.String()).
			Int("offset", start).
			Err(err).
			Msg("frame decode failed")
		return nil, d.err
	}
	log.Trace().
		Str("source", d.source.String()).
		Int("offset", start).
		Str("kind", msg.Kind().String()).
		Str("method", msg.Method()).
		Msg("frame decoded")
	return msg, nil
}

func (d *Decoder) readProtocolHeader() (Message, error) {
	rest := d.buf[d.off:]
	if len(rest) < protocolHeaderLen {
		return nil, fmt.Errorf("protocol header: %w: need %d bytes, have %d",
			field.ErrTruncatedInput, protocolHeaderLen, len(rest))
	}
	h := &ProtocolHeader{
		ProtocolID: rest[4],
		Major:      rest[5],
		Minor:      rest[6],
		Revision:   rest[7],
	}
	d.off += protocolHeaderLen
	return h, nil
}

func (d *Decoder) readFrame() (Message, error) {
	rest := d.buf[d.off:]
	frameType, rest, err := field.DecodeOctet(rest)
	if err != nil {
		return nil, err
	}
	switch frameType {
	case spec.FrameMethod, spec.FrameHeader, spec.FrameBody, spec.FrameHeartbeat:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, frameType)
	}
	channel, rest, err := field.DecodeUint16(rest)
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}
	size, rest, err := field.DecodeUint32(rest)
	if err != nil {
		return nil, fmt.Errorf("payload size: %w", err)
	}
	if uint64(len(rest)) < uint64(size)+1 {
		return nil, fmt.Errorf("%w: payload of %d bytes plus end marker, %d available",
			ErrTruncatedFrame, size, len(rest))
	}
	payload := rest[:size]
	if end := rest[size]; end != spec.FrameEnd {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidFrameEnd, end)
	}
	f, err := NewFrame(d.source, Kind(frameType), channel, payload)
	if err != nil {
		return nil, err
	}
	d.off += frameHeaderLen + int(size) + 1
	return f, nil
}

// Messages yields every message in order. On failure the final pair carries
// the error; io.EOF is never yielded.
func (d *Decoder) Messages() iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for {
			msg, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(msg, err) || err != nil {
				return
			}
		}
	}
}

// DecodeAll decodes buf completely. On failure it returns every message
// decoded before the failure point together with the error.
func DecodeAll(source Source, buf []byte) ([]Message, error) {
	d := NewDecoder(source, buf)
	var out []Message
	for msg, err := range d.Messages() {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}
