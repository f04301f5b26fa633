// Package render prints analysed message sequences as text lines or JSON.
package render

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/protocol/schema"
)

const flaggedMarker = "(!) "

// Line renders one message:
//
//	[(!) ]SOURCE: |KIND|channel|payload_len|payload|END|
//	[(!) ]CLIENT: |PROTOCOL_HEADER| AMQP id major.minor.rev |
func Line(m frame.Message) string {
	marker := ""
	if m.OutOfOrder() {
		marker = flaggedMarker
	}
	switch v := m.(type) {
	case *frame.ProtocolHeader:
		return fmt.Sprintf("%s%s: |%s| AMQP %d %s |", marker, v.Source(), v.Kind(), v.ProtocolID, v.Version())
	case *frame.Frame:
		return fmt.Sprintf("%s%s: |%s|%d|%d|%s|END|",
			marker, v.Source(), v.Kind(), v.Channel(), len(v.Payload()), Payload(v))
	default:
		return fmt.Sprintf("%s%s: |%s|%s|", marker, m.Source(), m.Kind(), m.Method())
	}
}

// Payload renders the parsed payload of a frame. Arguments that do not fit
// their schema fall back to hex.
func Payload(f *frame.Frame) string {
	switch f.Kind() {
	case frame.KindMethod:
		args, err := schema.DecodeArguments(f.Method(), f.Args())
		if err != nil {
			return fmt.Sprintf("%s(0x%s)", f.Method(), hex.EncodeToString(f.Args()))
		}
		return f.Method() + "(" + joinArgs(args) + ")"
	case frame.KindHeader:
		props := "0x" + hex.EncodeToString(f.Properties())
		if decoded, err := schema.DecodeProperties(f.ClassID(), f.Properties()); err == nil {
			props = "{" + joinArgs(decoded) + "}"
		}
		return fmt.Sprintf("%s(weight=%d, body_size=%d, properties=%s)", f.Method(), f.Weight(), f.BodySize(), props)
	case frame.KindBody:
		return strconv.Quote(string(f.Payload()))
	default:
		return ""
	}
}

func joinArgs(args []schema.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name + "=" + a.Value.String()
	}
	return strings.Join(parts, ", ")
}
