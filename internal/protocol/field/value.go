package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Tag is the one-byte ASCII type tag that precedes a field value on the wire.
type Tag byte

// Field value tags of AMQP 0-9-1 field tables and arrays.
const (
	TagBool      Tag = 't'
	TagInt8      Tag = 'b'
	TagUint8     Tag = 'B'
	TagInt16     Tag = 'U'
	TagUint16    Tag = 'u'
	TagInt32     Tag = 'I'
	TagUint32    Tag = 'i'
	TagInt64     Tag = 'L'
	TagUint64    Tag = 'l'
	TagFloat32   Tag = 'f'
	TagFloat64   Tag = 'd'
	TagDecimal   Tag = 'D'
	TagShortStr  Tag = 's'
	TagLongStr   Tag = 'S'
	TagArray     Tag = 'A'
	TagTimestamp Tag = 'T'
	TagTable     Tag = 'F'
	TagVoid      Tag = 'V'
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindShortStr
	KindLongStr
	KindArray
	KindTimestamp
	KindTable
)

var kindNames = [...]string{
	KindVoid:      "void",
	KindBool:      "bool",
	KindInt8:      "int8",
	KindUint8:     "uint8",
	KindInt16:     "int16",
	KindUint16:    "uint16",
	KindInt32:     "int32",
	KindUint32:    "uint32",
	KindInt64:     "int64",
	KindUint64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindShortStr:  "shortstr",
	KindLongStr:   "longstr",
	KindArray:     "array",
	KindTimestamp: "timestamp",
	KindTable:     "table",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Tag returns the wire tag for k.
func (k Kind) Tag() Tag {
	switch k {
	case KindBool:
		return TagBool
	case KindInt8:
		return TagInt8
	case KindUint8:
		return TagUint8
	case KindInt16:
		return TagInt16
	case KindUint16:
		return TagUint16
	case KindInt32:
		return TagInt32
	case KindUint32:
		return TagUint32
	case KindInt64:
		return TagInt64
	case KindUint64:
		return TagUint64
	case KindFloat32:
		return TagFloat32
	case KindFloat64:
		return TagFloat64
	case KindDecimal:
		return TagDecimal
	case KindShortStr:
		return TagShortStr
	case KindLongStr:
		return TagLongStr
	case KindArray:
		return TagArray
	case KindTimestamp:
		return TagTimestamp
	case KindTable:
		return TagTable
	default:
		return TagVoid
	}
}

// TimestampLayout is the UTC wall-clock rendering of timestamp values.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// timestampText renders seconds past the signed 64-bit range as the raw
// unsigned count, since time.Time cannot hold them.
func (v Value) timestampText() string {
	if sec := v.Time.Unix(); sec < 0 {
		return strconv.FormatUint(uint64(sec), 10)
	}
	return v.Time.UTC().Format(TimestampLayout)
}

// Value is one decoded field value. Only the member selected by Kind is meaningful:
// Int carries the signed kinds, Uint the unsigned kinds, Float both float widths
// and Str both string widths.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Decimal Decimal
	Str     string
	Time    time.Time
	Array   []Value
	Table   *Table
}

func Void() Value { return Value{Kind: KindVoid} }
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }
func Int8(v int8) Value { return Value{Kind: KindInt8, Int: int64(v)} }
func Uint8(v uint8) Value { return Value{Kind: KindUint8, Uint: uint64(v)} }
func Int16(v int16) Value { return Value{Kind: KindInt16, Int: int64(v)} }
func Uint16(v uint16) Value { return Value{Kind: KindUint16, Uint: uint64(v)} }
func Int32(v int32) Value { return Value{Kind: KindInt32, Int: int64(v)} }
func Uint32(v uint32) Value { return Value{Kind: KindUint32, Uint: uint64(v)} }
func Int64(v int64) Value { return Value{Kind: KindInt64, Int: v} }
func Uint64(v uint64) Value { return Value{Kind: KindUint64, Uint: v} }
func Float32(v float32) Value { return Value{Kind: KindFloat32, Float: float64(v)} }
func Float64(v float64) Value { return Value{Kind: KindFloat64, Float: v} }
func DecimalValue(d Decimal) Value { return Value{Kind: KindDecimal, Decimal: d} }
func ShortStr(v string) Value { return Value{Kind: KindShortStr, Str: v} }
func LongStr(v string) Value { return Value{Kind: KindLongStr, Str: v} }
func Array(v ...Value) Value { return Value{Kind: KindArray, Array: v} }
func TableValue(t *Table) Value { return Value{Kind: KindTable, Table: t} }

// Timestamp builds a timestamp value with second precision in UTC.
func Timestamp(t time.Time) Value {
	return Value{Kind: KindTimestamp, Time: time.Unix(t.Unix(), 0).UTC()}
}

// String renders v for human consumption.
func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(v.Uint, 10)
	case KindFloat32:
		return strconv.FormatFloat(v.Float, 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDecimal:
		return v.Decimal.String()
	case KindShortStr, KindLongStr:
		return strconv.Quote(v.Str)
	case KindTimestamp:
		return v.timestampText()
	case KindArray:
		parts := make([]string, 0, len(v.Array))
		for _, elem := range v.Array {
			parts = append(parts, elem.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindTable:
		return v.Table.String()
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// Interface converts v to plain Go values for JSON rendering.
func (v Value) Interface() any {
	switch v.Kind {
	case KindVoid:
		return nil
	case KindBool:
		return v.Bool
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.Int
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.Uint
	case KindFloat32, KindFloat64:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return v.String()
		}
		return v.Float
	case KindDecimal:
		return v.Decimal.String()
	case KindShortStr, KindLongStr:
		return v.Str
	case KindTimestamp:
		return v.timestampText()
	case KindArray:
		out := make([]any, 0, len(v.Array))
		for _, elem := range v.Array {
			out = append(out, elem.Interface())
		}
		return out
	case KindTable:
		return v.Table.Map()
	default:
		return nil
	}
}
