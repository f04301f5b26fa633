package render

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/danmuck/amqpdetective/internal/detective"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/protocol/schema"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("render: unknown format %q (expected text or json)", raw)
	}
}

// Arg is one named argument or property in JSON output.
type Arg struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Entry is the JSON form of one message.
type Entry struct {
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	OutOfOrder bool   `json:"out_of_order"`
	Line       string `json:"line"`

	Version    string  `json:"version,omitempty"`
	Channel    *uint16 `json:"channel,omitempty"`
	PayloadLen *int    `json:"payload_len,omitempty"`
	Arguments  []Arg   `json:"arguments,omitempty"`
	Weight     *uint16 `json:"weight,omitempty"`
	BodySize   *uint64 `json:"body_size,omitempty"`
	Properties []Arg   `json:"properties,omitempty"`
	Body       string  `json:"body,omitempty"`
	RawHex     string  `json:"raw_hex,omitempty"`
	ParseError string  `json:"parse_error,omitempty"`
}

func NewEntry(m frame.Message) Entry {
	e := Entry{
		Source:     m.Source().String(),
		Kind:       m.Kind().String(),
		Name:       m.Method(),
		OutOfOrder: m.OutOfOrder(),
		Line:       Line(m),
	}
	switch v := m.(type) {
	case *frame.ProtocolHeader:
		e.Version = v.Version()
	case *frame.Frame:
		channel, size := v.Channel(), len(v.Payload())
		e.Channel, e.PayloadLen = &channel, &size
		switch v.Kind() {
		case frame.KindMethod:
			args, err := schema.DecodeArguments(v.Method(), v.Args())
			if err != nil {
				e.ParseError = err.Error()
				e.RawHex = hex.EncodeToString(v.Args())
			}
			e.Arguments = jsonArgs(args)
		case frame.KindHeader:
			weight, bodySize := v.Weight(), v.BodySize()
			e.Weight, e.BodySize = &weight, &bodySize
			props, err := schema.DecodeProperties(v.ClassID(), v.Properties())
			if err != nil {
				e.ParseError = err.Error()
				e.RawHex = hex.EncodeToString(v.Properties())
			}
			e.Properties = jsonArgs(props)
		case frame.KindBody:
			e.Body = string(v.Payload())
		}
	}
	return e
}

func jsonArgs(args []schema.Arg) []Arg {
	if len(args) == 0 {
		return nil
	}
	out := make([]Arg, len(args))
	for i, a := range args {
		out[i] = Arg{Name: a.Name, Value: a.Value.Interface()}
	}
	return out
}

// Report is the JSON document for one analysis.
type Report struct {
	Rule        string  `json:"rule"`
	Outcome     string  `json:"outcome"`
	Matched     bool    `json:"matched"`
	Flagged     int     `json:"flagged"`
	Mismatch    string  `json:"mismatch,omitempty"`
	Messages    []Entry `json:"messages"`
	ClientError string  `json:"client_error,omitempty"`
	ServerError string  `json:"server_error,omitempty"`
}

// NewReport builds a report. clientErr and serverErr are the terminal decode
// errors of each stream, if any.
func NewReport(res detective.Result, clientErr, serverErr error) Report {
	r := Report{
		Rule:     res.Rule,
		Outcome:  res.Outcome(),
		Matched:  res.Matched,
		Flagged:  res.Flagged,
		Messages: make([]Entry, 0, len(res.Messages)),
	}
	if res.Mismatch != nil {
		r.Mismatch = res.Mismatch.Error()
	}
	for _, m := range res.Messages {
		r.Messages = append(r.Messages, NewEntry(m))
	}
	if clientErr != nil {
		r.ClientError = clientErr.Error()
	}
	if serverErr != nil {
		r.ServerError = serverErr.Error()
	}
	return r
}

// WriteText writes one line per message.
func WriteText(w io.Writer, msgs []frame.Message) error {
	for _, m := range msgs {
		if _, err := fmt.Fprintln(w, Line(m)); err != nil {
			return err
		}
	}
	return nil
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Write renders an analysis in the given format. In text mode decode errors
// follow the messages as comment lines.
func Write(w io.Writer, format Format, res detective.Result, clientErr, serverErr error) error {
	if format == FormatJSON {
		return WriteJSON(w, NewReport(res, clientErr, serverErr))
	}
	if err := WriteText(w, res.Messages); err != nil {
		return err
	}
	for _, err := range []error{clientErr, serverErr} {
		if err == nil {
			continue
		}
		if _, werr := fmt.Fprintf(w, "# %v\n", err); werr != nil {
			return werr
		}
	}
	return nil
}
