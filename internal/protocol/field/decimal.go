package field

import (
	"math"
	"strconv"
	"strings"
)

// Decimal is the exact AMQP decimal: Mantissa / 10^Scale.
type Decimal struct {
	Scale    uint8
	Mantissa uint32
}

// Float64 returns the nearest float64. Precision is lost for large scales.
func (d Decimal) Float64() float64 {
	return float64(d.Mantissa) / math.Pow10(int(d.Scale))
}

// String formats the decimal exactly, e.g. scale=2 mantissa=12345 is "123.45".
func (d Decimal) String() string {
	digits := strconv.FormatUint(uint64(d.Mantissa), 10)
	scale := int(d.Scale)
	if scale == 0 {
		return digits
	}
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	cut := len(digits) - scale
	return digits[:cut] + "." + digits[cut:]
}
