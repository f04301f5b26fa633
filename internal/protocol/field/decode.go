package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Every decoder takes the unconsumed buffer and returns the decoded value with
// the remainder. Multi-byte values are big-endian.

func need(b []byte, n uint64) error {
	if uint64(len(b)) < n {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, n, len(b))
	}
	return nil
}

func DecodeOctet(b []byte) (uint8, []byte, error) {
	if err := need(b, 1); err != nil {
		return 0, nil, err
	}
	return b[0], b[1:], nil
}

// DecodeBool treats any non-zero octet as true.
func DecodeBool(b []byte) (bool, []byte, error) {
	v, rest, err := DecodeOctet(b)
	return v != 0, rest, err
}

func DecodeInt8(b []byte) (int8, []byte, error) {
	v, rest, err := DecodeOctet(b)
	return int8(v), rest, err
}

func DecodeUint16(b []byte) (uint16, []byte, error) {
	if err := need(b, 2); err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint16(b), b[2:], nil
}

func DecodeInt16(b []byte) (int16, []byte, error) {
	v, rest, err := DecodeUint16(b)
	return int16(v), rest, err
}

func DecodeUint32(b []byte) (uint32, []byte, error) {
	if err := need(b, 4); err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

func DecodeInt32(b []byte) (int32, []byte, error) {
	v, rest, err := DecodeUint32(b)
	return int32(v), rest, err
}

func DecodeUint64(b []byte) (uint64, []byte, error) {
	if err := need(b, 8); err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint64(b), b[8:], nil
}

func DecodeInt64(b []byte) (int64, []byte, error) {
	v, rest, err := DecodeUint64(b)
	return int64(v), rest, err
}

func DecodeFloat32(b []byte) (float32, []byte, error) {
	v, rest, err := DecodeUint32(b)
	return math.Float32frombits(v), rest, err
}

func DecodeFloat64(b []byte) (float64, []byte, error) {
	v, rest, err := DecodeUint64(b)
	return math.Float64frombits(v), rest, err
}

// DecodeDecimal reads a scale octet followed by an unsigned 32-bit mantissa.
func DecodeDecimal(b []byte) (Decimal, []byte, error) {
	if err := need(b, 5); err != nil {
		return Decimal{}, nil, err
	}
	return Decimal{Scale: b[0], Mantissa: binary.BigEndian.Uint32(b[1:5])}, b[5:], nil
}

func DecodeShortString(b []byte) (string, []byte, error) {
	n, rest, err := DecodeOctet(b)
	if err != nil {
		return "", nil, err
	}
	return decodeString(rest, uint64(n))
}

func DecodeLongString(b []byte) (string, []byte, error) {
	n, rest, err := DecodeUint32(b)
	if err != nil {
		return "", nil, err
	}
	return decodeString(rest, uint64(n))
}

func decodeString(b []byte, n uint64) (string, []byte, error) {
	if err := need(b, n); err != nil {
		return "", nil, err
	}
	raw := b[:n]
	if !utf8.Valid(raw) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidUTF8, raw)
	}
	return string(raw), b[n:], nil
}

// DecodeTimestamp reads 64-bit seconds since the epoch as a UTC time. Values
// above MaxInt64 wrap to pre-1970 times; encoding restores the original bits
// and Value.String renders them as raw seconds.
func DecodeTimestamp(b []byte) (time.Time, []byte, error) {
	v, rest, err := DecodeUint64(b)
	if err != nil {
		return time.Time{}, nil, err
	}
	return time.Unix(int64(v), 0).UTC(), rest, nil
}

// DecodeFieldArray reads a byte-length-prefixed sequence of tagged values. The
// elements must fill the declared length exactly.
func DecodeFieldArray(b []byte) ([]Value, []byte, error) {
	body, rest, err := containerBody(b)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Value, 0)
	for consumed := 0; consumed < len(body); {
		v, tail, err := DecodeTaggedValue(body[consumed:])
		if err != nil {
			return nil, nil, containerErr("array", len(out), err)
		}
		consumed = len(body) - len(tail)
		out = append(out, v)
	}
	return out, rest, nil
}

// DecodeFieldTable reads a byte-length-prefixed sequence of short-string keys
// each followed by a tagged value.
func DecodeFieldTable(b []byte) (*Table, []byte, error) {
	body, rest, err := containerBody(b)
	if err != nil {
		return nil, nil, err
	}
	t := &Table{Entries: make([]Entry, 0)}
	for consumed := 0; consumed < len(body); {
		key, tail, err := DecodeShortString(body[consumed:])
		if err != nil {
			return nil, nil, containerErr("table", t.Len(), err)
		}
		v, tail, err := DecodeTaggedValue(tail)
		if err != nil {
			return nil, nil, containerErr("table", t.Len(), err)
		}
		consumed = len(body) - len(tail)
		t.Set(key, v)
	}
	return t, rest, nil
}

func containerBody(b []byte) ([]byte, []byte, error) {
	size, rest, err := DecodeUint32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(size) {
		return nil, nil, fmt.Errorf(
			"%w: declared %d bytes, %d available: %w",
			ErrMalformedContainer,
			size,
			len(rest),
			ErrTruncatedInput,
		)
	}
	return rest[:size], rest[size:], nil
}

// An element that runs past the declared container length surfaces as a
// truncation of the body slice.
func containerErr(kind string, index int, err error) error {
	if errors.Is(err, ErrTruncatedInput) && !errors.Is(err, ErrMalformedContainer) {
		return fmt.Errorf("%w: %s element %d overruns declared length: %w", ErrMalformedContainer, kind, index, err)
	}
	return err
}

// DecodeTaggedValue reads a one-byte tag and the value it announces.
func DecodeTaggedValue(b []byte) (Value, []byte, error) {
	tag, rest, err := DecodeOctet(b)
	if err != nil {
		return Value{}, nil, err
	}
	return DecodeValue(Tag(tag), rest)
}

// DecodeValue dispatches on tag. Unrecognised tags fail with ErrUnknownTypeTag.
func DecodeValue(tag Tag, b []byte) (Value, []byte, error) {
	switch tag {
	case TagBool:
		v, rest, err := DecodeBool(b)
		return Bool(v), rest, err
	case TagInt8:
		v, rest, err := DecodeInt8(b)
		return Int8(v), rest, err
	case TagUint8:
		v, rest, err := DecodeOctet(b)
		return Uint8(v), rest, err
	case TagInt16:
		v, rest, err := DecodeInt16(b)
		return Int16(v), rest, err
	case TagUint16:
		v, rest, err := DecodeUint16(b)
		return Uint16(v), rest, err
	case TagInt32:
		v, rest, err := DecodeInt32(b)
		return Int32(v), rest, err
	case TagUint32:
		v, rest, err := DecodeUint32(b)
		return Uint32(v), rest, err
	case TagInt64:
		v, rest, err := DecodeInt64(b)
		return Int64(v), rest, err
	case TagUint64:
		v, rest, err := DecodeUint64(b)
		return Uint64(v), rest, err
	case TagFloat32:
		v, rest, err := DecodeFloat32(b)
		return Float32(v), rest, err
	case TagFloat64:
		v, rest, err := DecodeFloat64(b)
		return Float64(v), rest, err
	case TagDecimal:
		v, rest, err := DecodeDecimal(b)
		return DecimalValue(v), rest, err
	case TagShortStr:
		v, rest, err := DecodeShortString(b)
		return ShortStr(v), rest, err
	case TagLongStr:
		v, rest, err := DecodeLongString(b)
		return LongStr(v), rest, err
	case TagArray:
		v, rest, err := DecodeFieldArray(b)
		return Value{Kind: KindArray, Array: v}, rest, err
	case TagTimestamp:
		v, rest, err := DecodeTimestamp(b)
		return Value{Kind: KindTimestamp, Time: v}, rest, err
	case TagTable:
		v, rest, err := DecodeFieldTable(b)
		return TableValue(v), rest, err
	case TagVoid:
		return Void(), b, nil
	default:
		return Value{}, nil, fmt.Errorf("%w: %q (0x%02x)", ErrUnknownTypeTag, byte(tag), byte(tag))
	}
}
