package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/spec"
	"github.com/danmuck/amqpdetective/internal/testutil/testlog"
)

func TestEveryMethodHasArguments(t *testing.T) {
	testlog.Start(t)
	for _, name := range spec.MethodNames() {
		if _, ok := Arguments(name); !ok {
			t.Fatalf("method %s has no argument schema", name)
		}
	}
}

func TestDecodeTuneOK(t *testing.T) {
	testlog.Start(t)
	args, err := DecodeArguments("connection.tune-ok", []byte{0xff, 0xff, 0, 2, 0, 0, 0, 5})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]uint64{"channel-max": 65535, "frame-max": 131072, "heartbeat": 5}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(args))
	}
	for _, a := range args {
		if a.Value.Uint != want[a.Name] {
			t.Fatalf("%s: got %d want %d", a.Name, a.Value.Uint, want[a.Name])
		}
	}
}

func TestBitsPackLeastSignificantFirst(t *testing.T) {
	testlog.Start(t)
	in := []field.Value{
		field.Uint16(0),
		field.ShortStr("jobs"),
		field.Bool(false),
		field.Bool(true),
		field.Bool(false),
		field.Bool(true),
		field.Bool(false),
		field.TableValue(field.NewTable()),
	}
	wire, err := EncodeArguments("queue.declare", in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bitsAt := wire[2+1+4]; bitsAt != 0x0A {
		t.Fatalf("unexpected bit octet: %#x", bitsAt)
	}
	args, err := DecodeArguments("queue.declare", wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := map[string]bool{}
	for _, a := range args {
		if a.Value.Kind == field.KindBool {
			got[a.Name] = a.Value.Bool
		}
	}
	if got["passive"] || !got["durable"] || got["exclusive"] || !got["auto-delete"] || got["no-wait"] {
		t.Fatalf("unexpected flags: %v", got)
	}
}

func TestBitRunResetsAfterOtherDomain(t *testing.T) {
	testlog.Start(t)
	// redelivered is a lone bit between a longlong and a shortstr.
	in := []field.Value{
		field.Uint64(7),
		field.Bool(true),
		field.ShortStr("amq.direct"),
		field.ShortStr("rk"),
		field.Uint32(3),
	}
	wire, err := EncodeArguments("basic.get-ok", in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	args, err := DecodeArguments("basic.get-ok", wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !args[1].Value.Bool || args[2].Value.Str != "amq.direct" || args[4].Value.Uint != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDecodeArgumentErrors(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeArguments("connection.tune-ok", []byte{0xff})
	var ae ArgumentError
	if !errors.As(err, &ae) || ae.Arg != "channel-max" || !errors.Is(err, field.ErrTruncatedInput) {
		t.Fatalf("unexpected truncation error: %v", err)
	}
	if _, err := DecodeArguments("tx.select", []byte{1}); err == nil {
		t.Fatalf("expected trailing bytes to be rejected")
	}
	if _, err := DecodeArguments("nope.nothing", nil); err == nil {
		t.Fatalf("expected unknown method to be rejected")
	}
	if _, err := EncodeArguments("basic.ack", []field.Value{field.Uint64(1)}); err == nil {
		t.Fatalf("expected arity mismatch")
	}
}

func TestBasicPropertiesRoundTrip(t *testing.T) {
	testlog.Start(t)
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Arg{
		{Name: "content-type", Value: field.ShortStr("text/plain")},
		{Name: "delivery-mode", Value: field.Uint8(2)},
		{Name: "timestamp", Value: field.Timestamp(stamp)},
	}
	wire, err := EncodeProperties(spec.ClassBasic, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if wire[0] != 0x90 || wire[1] != 0x40 {
		t.Fatalf("unexpected flags: %#x %#x", wire[0], wire[1])
	}
	out, err := DecodeProperties(spec.ClassBasic, wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 3 || out[0].Value.Str != "text/plain" || out[1].Value.Uint != 2 || !out[2].Value.Time.Equal(stamp) {
		t.Fatalf("unexpected properties: %+v", out)
	}
}

func TestDecodePropertiesErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeProperties(spec.ClassConnection, []byte{0, 0}); err == nil {
		t.Fatalf("expected class without properties to be rejected")
	}
	if _, err := DecodeProperties(spec.ClassBasic, []byte{0x80, 0x00, 9, 'x'}); !errors.Is(err, field.ErrTruncatedInput) {
		t.Fatalf("expected truncated content-type, got %v", err)
	}
	if _, err := EncodeProperties(spec.ClassBasic, []Arg{{Name: "colour", Value: field.ShortStr("red")}}); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	empty, err := DecodeProperties(spec.ClassBasic, []byte{0, 0})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no properties, got %v %v", empty, err)
	}
}
