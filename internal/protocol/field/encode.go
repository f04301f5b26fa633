package field

import (
	"encoding/binary"
	"fmt"
	"math"
)

func AppendOctet(b []byte, v uint8) []byte {
	return append(b, v)
}

func AppendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func AppendUint16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func AppendUint32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func AppendUint64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}

func AppendFloat32(b []byte, v float32) []byte {
	return AppendUint32(b, math.Float32bits(v))
}

func AppendFloat64(b []byte, v float64) []byte {
	return AppendUint64(b, math.Float64bits(v))
}

func AppendDecimal(b []byte, d Decimal) []byte {
	return AppendUint32(append(b, d.Scale), d.Mantissa)
}

func AppendShortString(b []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint8 {
		return nil, fmt.Errorf("%w: short string of %d bytes", ErrStringTooLong, len(s))
	}
	return append(append(b, uint8(len(s))), s...), nil
}

func AppendLongString(b []byte, s string) ([]byte, error) {
	if uint64(len(s)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: long string of %d bytes", ErrStringTooLong, len(s))
	}
	return append(AppendUint32(b, uint32(len(s))), s...), nil
}

func AppendTimestamp(b []byte, v Value) []byte {
	return AppendUint64(b, uint64(v.Time.Unix()))
}

// AppendFieldArray writes the byte-length prefix followed by tagged elements.
func AppendFieldArray(b []byte, values []Value) ([]byte, error) {
	var body []byte
	for _, v := range values {
		var err error
		if body, err = AppendTaggedValue(body, v); err != nil {
			return nil, err
		}
	}
	return appendContainer(b, body)
}

func AppendFieldTable(b []byte, t *Table) ([]byte, error) {
	var body []byte
	if t != nil {
		for _, e := range t.Entries {
			var err error
			if body, err = AppendShortString(body, e.Key); err != nil {
				return nil, err
			}
			if body, err = AppendTaggedValue(body, e.Value); err != nil {
				return nil, err
			}
		}
	}
	return appendContainer(b, body)
}

func appendContainer(b, body []byte) ([]byte, error) {
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: container of %d bytes", ErrMalformedContainer, len(body))
	}
	return append(AppendUint32(b, uint32(len(body))), body...), nil
}

// AppendTaggedValue writes v's tag and wire representation.
func AppendTaggedValue(b []byte, v Value) ([]byte, error) {
	return AppendValue(append(b, byte(v.Kind.Tag())), v)
}

// AppendValue writes v's wire representation without its tag.
func AppendValue(b []byte, v Value) ([]byte, error) {
	switch v.Kind {
	case KindVoid:
		return b, nil
	case KindBool:
		return AppendBool(b, v.Bool), nil
	case KindInt8:
		return AppendOctet(b, uint8(int8(v.Int))), nil
	case KindUint8:
		return AppendOctet(b, uint8(v.Uint)), nil
	case KindInt16:
		return AppendUint16(b, uint16(int16(v.Int))), nil
	case KindUint16:
		return AppendUint16(b, uint16(v.Uint)), nil
	case KindInt32:
		return AppendUint32(b, uint32(int32(v.Int))), nil
	case KindUint32:
		return AppendUint32(b, uint32(v.Uint)), nil
	case KindInt64:
		return AppendUint64(b, uint64(v.Int)), nil
	case KindUint64:
		return AppendUint64(b, v.Uint), nil
	case KindFloat32:
		return AppendFloat32(b, float32(v.Float)), nil
	case KindFloat64:
		return AppendFloat64(b, v.Float), nil
	case KindDecimal:
		return AppendDecimal(b, v.Decimal), nil
	case KindShortStr:
		return AppendShortString(b, v.Str)
	case KindLongStr:
		return AppendLongString(b, v.Str)
	case KindArray:
		return AppendFieldArray(b, v.Array)
	case KindTimestamp:
		return AppendTimestamp(b, v), nil
	case KindTable:
		return AppendFieldTable(b, v.Table)
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrUnknownTypeTag, v.Kind)
	}
}
