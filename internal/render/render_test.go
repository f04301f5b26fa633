package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/amqpdetective/internal/detective"
	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/protocol/schema"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
	"github.com/danmuck/amqpdetective/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestLineProtocolHeader(t *testing.T) {
	testlog.Start(t)
	h := &frame.ProtocolHeader{Major: 0, Minor: 9, Revision: 1}
	require.Equal(t, "CLIENT: |PROTOCOL_HEADER| AMQP 0 0.9.1 |", Line(h))
	h.MarkOutOfOrder()
	require.Equal(t, "(!) CLIENT: |PROTOCOL_HEADER| AMQP 0 0.9.1 |", Line(h))
}

func TestLineMethodWithArguments(t *testing.T) {
	testlog.Start(t)
	f, err := frame.NewMethodFrame(frame.SourceServer, 0, "connection.tune", []byte{0x07, 0xff, 0, 2, 0, 0, 0, 60})
	require.NoError(t, err)
	require.Equal(t,
		"SERVER: |METHOD|0|12|connection.tune(channel-max=2047, frame-max=131072, heartbeat=60)|END|",
		Line(f))
}

func TestLineMethodFallsBackToHex(t *testing.T) {
	testlog.Start(t)
	f, err := frame.NewMethodFrame(frame.SourceClient, 1, "basic.ack", []byte{0xAB})
	require.NoError(t, err)
	require.Equal(t, "CLIENT: |METHOD|1|5|basic.ack(0xab)|END|", Line(f))
}

func TestLineHeaderAndBody(t *testing.T) {
	testlog.Start(t)
	props, err := schema.EncodeProperties(spec.ClassBasic, []schema.Arg{
		{Name: "content-type", Value: field.ShortStr("text/plain")},
	})
	require.NoError(t, err)
	h, err := frame.NewHeaderFrame(frame.SourceClient, 1, spec.ClassBasic, 0, 5, props)
	require.NoError(t, err)
	require.Equal(t,
		`CLIENT: |HEADER|1|21|basic.HEADER(weight=0, body_size=5, properties={content-type="text/plain"})|END|`,
		Line(h))

	b := frame.NewBodyFrame(frame.SourceClient, 1, []byte("hello"))
	b.MarkOutOfOrder()
	require.Equal(t, `(!) CLIENT: |BODY|1|5|"hello"|END|`, Line(b))
}

func TestReportJSON(t *testing.T) {
	testlog.Start(t)
	ack, err := frame.NewMethodFrame(frame.SourceServer, 1, "basic.ack", []byte{0, 0, 0, 0, 0, 0, 0, 7, 1})
	require.NoError(t, err)
	res := detective.Result{Rule: "ack", Matched: true, Messages: []frame.Message{ack, frame.NewHeartbeat(frame.SourceServer)}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, res, nil, errors.New("frame: decode SERVER stream at offset 9: boom")))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, detective.OutcomeMatched, got.Outcome)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "basic.ack", got.Messages[0].Name)
	require.Equal(t, []Arg{{Name: "delivery-tag", Value: float64(7)}, {Name: "multiple", Value: true}}, got.Messages[0].Arguments)
	require.Equal(t, "HEARTBEAT", got.Messages[1].Kind)
	require.Contains(t, got.ServerError, "boom")
	require.Empty(t, got.ClientError)
}

func TestWriteTextAppendsDecodeErrors(t *testing.T) {
	testlog.Start(t)
	res := detective.Result{Messages: []frame.Message{&frame.ProtocolHeader{Minor: 9, Revision: 1}}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, res, errors.New("client broke"), nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{"CLIENT: |PROTOCOL_HEADER| AMQP 0 0.9.1 |", "# client broke"}, lines)
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatText, f)
	_, err = ParseFormat("yaml")
	require.Error(t, err)
}
