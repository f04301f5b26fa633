package schema

import (
	"errors"
	"fmt"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/rs/zerolog/log"
)

// Domain is the wire type of one method argument.
type Domain uint8

const (
	Octet Domain = iota + 1
	Short
	Long
	LongLong
	ShortStr
	LongStr
	Bit
	Table
	Timestamp
)

var domainNames = map[Domain]string{
	Octet:     "octet",
	Short:     "short",
	Long:      "long",
	LongLong:  "longlong",
	ShortStr:  "shortstr",
	LongStr:   "longstr",
	Bit:       "bit",
	Table:     "table",
	Timestamp: "timestamp",
}

func (d Domain) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return fmt.Sprintf("domain(%d)", uint8(d))
}

// Spec declares one argument of a method.
type Spec struct {
	Name   string
	Domain Domain
}

// Arg is one decoded argument.
type Arg struct {
	Name  string
	Value field.Value
}

var ErrUnknownProperty = errors.New("schema: unknown property")

// ArgumentError reports the first argument that failed to decode or encode.
type ArgumentError struct {
	Method string
	Arg    string
	Reason string
	Err    error
}

func (e ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("schema: method=%s: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("schema: method=%s arg=%s: %s: %v", e.Method, e.Arg, e.Reason, e.Err)
}

func (e ArgumentError) Unwrap() error { return e.Err }

var (
	reserved1Short = Spec{"reserved-1", Short}
	reserved1Str   = Spec{"reserved-1", ShortStr}
	closeArgs      = []Spec{
		{"reply-code", Short},
		{"reply-text", ShortStr},
		{"class-id", Short},
		{"method-id", Short},
	}
	tuneArgs = []Spec{
		{"channel-max", Short},
		{"frame-max", Long},
		{"heartbeat", Short},
	}
	bindArgs = []Spec{
		reserved1Short,
		{"destination", ShortStr},
		{"source", ShortStr},
		{"routing-key", ShortStr},
		{"no-wait", Bit},
		{"arguments", Table},
	}
)

var methods = map[string][]Spec{
	"connection.start": {
		{"version-major", Octet},
		{"version-minor", Octet},
		{"server-properties", Table},
		{"mechanisms", LongStr},
		{"locales", LongStr},
	},
	"connection.start-ok": {
		{"client-properties", Table},
		{"mechanism", ShortStr},
		{"response", LongStr},
		{"locale", ShortStr},
	},
	"connection.secure":    {{"challenge", LongStr}},
	"connection.secure-ok": {{"response", LongStr}},
	"connection.tune":      tuneArgs,
	"connection.tune-ok":   tuneArgs,
	"connection.open": {
		{"virtual-host", ShortStr},
		reserved1Str,
		{"reserved-2", Bit},
	},
	"connection.open-ok":   {reserved1Str},
	"connection.close":     closeArgs,
	"connection.close-ok":  {},
	"connection.blocked":   {{"reason", ShortStr}},
	"connection.unblocked": {},

	"channel.open":     {reserved1Str},
	"channel.open-ok":  {{"reserved-1", LongStr}},
	"channel.flow":     {{"active", Bit}},
	"channel.flow-ok":  {{"active", Bit}},
	"channel.close":    closeArgs,
	"channel.close-ok": {},

	"exchange.declare": {
		reserved1Short,
		{"exchange", ShortStr},
		{"type", ShortStr},
		{"passive", Bit},
		{"durable", Bit},
		{"auto-delete", Bit},
		{"internal", Bit},
		{"no-wait", Bit},
		{"arguments", Table},
	},
	"exchange.declare-ok": {},
	"exchange.delete": {
		reserved1Short,
		{"exchange", ShortStr},
		{"if-unused", Bit},
		{"no-wait", Bit},
	},
	"exchange.delete-ok": {},
	"exchange.bind":      bindArgs,
	"exchange.bind-ok":   {},
	"exchange.unbind":    bindArgs,
	"exchange.unbind-ok": {},

	"queue.declare": {
		reserved1Short,
		{"queue", ShortStr},
		{"passive", Bit},
		{"durable", Bit},
		{"exclusive", Bit},
		{"auto-delete", Bit},
		{"no-wait", Bit},
		{"arguments", Table},
	},
	"queue.declare-ok": {
		{"queue", ShortStr},
		{"message-count", Long},
		{"consumer-count", Long},
	},
	"queue.bind": {
		reserved1Short,
		{"queue", ShortStr},
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
		{"no-wait", Bit},
		{"arguments", Table},
	},
	"queue.bind-ok": {},
	"queue.unbind": {
		reserved1Short,
		{"queue", ShortStr},
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
		{"arguments", Table},
	},
	"queue.unbind-ok": {},
	"queue.purge": {
		reserved1Short,
		{"queue", ShortStr},
		{"no-wait", Bit},
	},
	"queue.purge-ok": {{"message-count", Long}},
	"queue.delete": {
		reserved1Short,
		{"queue", ShortStr},
		{"if-unused", Bit},
		{"if-empty", Bit},
		{"no-wait", Bit},
	},
	"queue.delete-ok": {{"message-count", Long}},

	"basic.qos": {
		{"prefetch-size", Long},
		{"prefetch-count", Short},
		{"global", Bit},
	},
	"basic.qos-ok": {},
	"basic.consume": {
		reserved1Short,
		{"queue", ShortStr},
		{"consumer-tag", ShortStr},
		{"no-local", Bit},
		{"no-ack", Bit},
		{"exclusive", Bit},
		{"no-wait", Bit},
		{"arguments", Table},
	},
	"basic.consume-ok": {{"consumer-tag", ShortStr}},
	"basic.cancel": {
		{"consumer-tag", ShortStr},
		{"no-wait", Bit},
	},
	"basic.cancel-ok": {{"consumer-tag", ShortStr}},
	"basic.publish": {
		reserved1Short,
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
		{"mandatory", Bit},
		{"immediate", Bit},
	},
	"basic.return": {
		{"reply-code", Short},
		{"reply-text", ShortStr},
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
	},
	"basic.deliver": {
		{"consumer-tag", ShortStr},
		{"delivery-tag", LongLong},
		{"redelivered", Bit},
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
	},
	"basic.get": {
		reserved1Short,
		{"queue", ShortStr},
		{"no-ack", Bit},
	},
	"basic.get-ok": {
		{"delivery-tag", LongLong},
		{"redelivered", Bit},
		{"exchange", ShortStr},
		{"routing-key", ShortStr},
		{"message-count", Long},
	},
	"basic.get-empty": {reserved1Str},
	"basic.ack": {
		{"delivery-tag", LongLong},
		{"multiple", Bit},
	},
	"basic.reject": {
		{"delivery-tag", LongLong},
		{"requeue", Bit},
	},
	"basic.recover-async": {{"requeue", Bit}},
	"basic.recover":       {{"requeue", Bit}},
	"basic.recover-ok":    {},
	"basic.nack": {
		{"delivery-tag", LongLong},
		{"multiple", Bit},
		{"requeue", Bit},
	},

	"confirm.select":    {{"nowait", Bit}},
	"confirm.select-ok": {},

	"tx.select":      {},
	"tx.select-ok":   {},
	"tx.commit":      {},
	"tx.commit-ok":   {},
	"tx.rollback":    {},
	"tx.rollback-ok": {},
}

// Arguments returns the argument layout of a method.
func Arguments(method string) ([]Spec, bool) {
	specs, ok := methods[method]
	return specs, ok
}

// DecodeArguments decodes the argument bytes of a METHOD frame. Consecutive
// bits share one octet, least significant bit first. Trailing bytes after the
// last argument are an error.
func DecodeArguments(method string, args []byte) ([]Arg, error) {
	specs, ok := methods[method]
	if !ok {
		return nil, ArgumentError{Method: method, Reason: "no argument schema"}
	}
	out := make([]Arg, 0, len(specs))
	rest := args
	var (
		bits    uint8
		bitPos  = 8
		decoded field.Value
		err     error
	)
	for _, s := range specs {
		if s.Domain != Bit {
			bitPos = 8
		}
		switch s.Domain {
		case Bit:
			if bitPos == 8 {
				if bits, rest, err = field.DecodeOctet(rest); err != nil {
					break
				}
				bitPos = 0
			}
			decoded = field.Bool(bits&(1<<bitPos) != 0)
			bitPos++
		default:
			decoded, rest, err = decodeDomain(s.Domain, rest)
		}
		if err != nil {
			log.Debug().Str("method", method).Str("arg", s.Name).Err(err).Msg("argument decode failed")
			return out, ArgumentError{Method: method, Arg: s.Name, Reason: "decode " + s.Domain.String(), Err: err}
		}
		out = append(out, Arg{Name: s.Name, Value: decoded})
	}
	if len(rest) > 0 {
		return out, ArgumentError{Method: method, Reason: fmt.Sprintf("%d trailing bytes", len(rest))}
	}
	return out, nil
}

func decodeDomain(d Domain, b []byte) (field.Value, []byte, error) {
	switch d {
	case Octet:
		v, rest, err := field.DecodeOctet(b)
		return field.Uint8(v), rest, err
	case Short:
		v, rest, err := field.DecodeUint16(b)
		return field.Uint16(v), rest, err
	case Long:
		v, rest, err := field.DecodeUint32(b)
		return field.Uint32(v), rest, err
	case LongLong:
		v, rest, err := field.DecodeUint64(b)
		return field.Uint64(v), rest, err
	case ShortStr:
		v, rest, err := field.DecodeShortString(b)
		return field.ShortStr(v), rest, err
	case LongStr:
		v, rest, err := field.DecodeLongString(b)
		return field.LongStr(v), rest, err
	case Table:
		v, rest, err := field.DecodeFieldTable(b)
		return field.TableValue(v), rest, err
	case Timestamp:
		return field.DecodeValue(field.TagTimestamp, b)
	default:
		return field.Value{}, nil, fmt.Errorf("schema: unsupported domain %s", d)
	}
}

// EncodeArguments is the inverse of DecodeArguments. Values are matched to
// the schema by position.
func EncodeArguments(method string, args []field.Value) ([]byte, error) {
	specs, ok := methods[method]
	if !ok {
		return nil, ArgumentError{Method: method, Reason: "no argument schema"}
	}
	if len(args) != len(specs) {
		return nil, ArgumentError{Method: method, Reason: fmt.Sprintf("expected %d arguments, got %d", len(specs), len(args))}
	}
	var (
		out    []byte
		bitIdx = -1
		bitPos = 8
		err    error
	)
	for i, s := range specs {
		v := args[i]
		if s.Domain == Bit {
			if bitPos == 8 {
				out = append(out, 0)
				bitIdx, bitPos = len(out)-1, 0
			}
			if v.Bool {
				out[bitIdx] |= 1 << bitPos
			}
			bitPos++
			continue
		}
		bitPos = 8
		if out, err = field.AppendValue(out, v); err != nil {
			return nil, ArgumentError{Method: method, Arg: s.Name, Reason: "encode " + s.Domain.String(), Err: err}
		}
	}
	return out, nil
}
