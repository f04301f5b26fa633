package schema

import (
	"fmt"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
)

// Basic content-header properties in flag order. The first property maps to
// bit 15 of the first flags word.
var basicProperties = []Spec{
	{"content-type", ShortStr},
	{"content-encoding", ShortStr},
	{"headers", Table},
	{"delivery-mode", Octet},
	{"priority", Octet},
	{"correlation-id", ShortStr},
	{"reply-to", ShortStr},
	{"expiration", ShortStr},
	{"message-id", ShortStr},
	{"timestamp", Timestamp},
	{"type", ShortStr},
	{"user-id", ShortStr},
	{"app-id", ShortStr},
	{"cluster-id", ShortStr},
}

const flagContinuation = 0x0001

// Properties returns the content property layout of a class.
func Properties(classID uint16) ([]Spec, bool) {
	if classID != spec.ClassBasic {
		return nil, false
	}
	return basicProperties, true
}

// DecodeProperties decodes the property section of a content header. Only
// properties whose flag bit is set are returned, in flag order.
func DecodeProperties(classID uint16, b []byte) ([]Arg, error) {
	specs, ok := Properties(classID)
	method := fmt.Sprintf("class(%d).HEADER", classID)
	if name, known := spec.ClassName(classID); known {
		method = name + ".HEADER"
	}
	if !ok {
		return nil, ArgumentError{Method: method, Reason: "no property schema"}
	}

	var flags []uint16
	rest := b
	for {
		word, next, err := field.DecodeUint16(rest)
		if err != nil {
			return nil, ArgumentError{Method: method, Arg: "property-flags", Reason: "decode short", Err: err}
		}
		flags = append(flags, word)
		rest = next
		if word&flagContinuation == 0 {
			break
		}
	}

	var out []Arg
	for i, s := range specs {
		word, bit := i/15, 15-i%15
		if word >= len(flags) || flags[word]&(1<<bit) == 0 {
			continue
		}
		v, next, err := decodeDomain(s.Domain, rest)
		if err != nil {
			return out, ArgumentError{Method: method, Arg: s.Name, Reason: "decode " + s.Domain.String(), Err: err}
		}
		out = append(out, Arg{Name: s.Name, Value: v})
		rest = next
	}
	if len(rest) > 0 {
		return out, ArgumentError{Method: method, Reason: fmt.Sprintf("%d trailing bytes", len(rest))}
	}
	return out, nil
}

// EncodeProperties writes the flags word and the given properties. Unknown
// names are rejected.
func EncodeProperties(classID uint16, props []Arg) ([]byte, error) {
	specs, ok := Properties(classID)
	if !ok {
		return nil, ArgumentError{Method: fmt.Sprintf("class(%d).HEADER", classID), Reason: "no property schema"}
	}
	set := make(map[string]field.Value, len(props))
	for _, p := range props {
		set[p.Name] = p.Value
	}
	var (
		flags uint16
		body  []byte
		err   error
	)
	for i, s := range specs {
		v, present := set[s.Name]
		if !present {
			continue
		}
		delete(set, s.Name)
		flags |= 1 << (15 - i)
		if body, err = field.AppendValue(body, v); err != nil {
			return nil, ArgumentError{Method: "basic.HEADER", Arg: s.Name, Reason: "encode " + s.Domain.String(), Err: err}
		}
	}
	for _, p := range props {
		if _, left := set[p.Name]; left {
			return nil, ArgumentError{Method: "basic.HEADER", Arg: p.Name, Reason: "unknown property", Err: ErrUnknownProperty}
		}
	}
	return append(field.AppendUint16(nil, flags), body...), nil
}
