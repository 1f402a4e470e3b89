package rowstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the closed set of column types the mapping engine reads.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeString
	TypeInteger
	TypeDouble
	TypeFloat
	TypeDecimal
	TypeTime
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeString:  "string",
	TypeInteger: "integer",
	TypeDouble:  "double",
	TypeFloat:   "float",
	TypeDecimal: "decimal",
	TypeTime:    "time",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the supported column types.
func (t Type) Valid() bool {
	return t > TypeInvalid && int(t) < len(typeNames)
}

// timeLayouts covers what database/sql drivers and the redis store hand back as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Convert reads a raw driver value as t. The result is one of bool, string,
// int64, float64, float32, decimal.Decimal or time.Time, or nil for NULL.
func Convert(raw any, t Type) (any, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if raw == nil {
		return nil, nil
	}
	var (
		v  any
		ok bool
	)
	switch t {
	case TypeBool:
		v, ok = toBool(raw)
	case TypeString:
		v, ok = toString(raw)
	case TypeInteger:
		v, ok = toInt64(raw)
	case TypeDouble:
		v, ok = toFloat64(raw)
	case TypeFloat:
		var f float64
		if f, ok = toFloat64(raw); ok {
			v = float32(f)
		}
	case TypeDecimal:
		v, ok = toDecimal(raw)
	case TypeTime:
		v, ok = toTime(raw)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot read %T as %s", ErrUnsupportedType, raw, t)
	}
	return v, nil
}

func toBool(raw any) (bool, bool) {
	switch x := raw.(type) {
	case bool:
		return x, true
	case string, []byte:
		b, err := strconv.ParseBool(text(x))
		return b, err == nil
	}
	if n, ok := toInt64(raw); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

func toString(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}

func toInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which itself does not fit
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case string, []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(text(x)), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case string, []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(text(x)), 64)
		return f, err == nil
	}
	if n, ok := toInt64(raw); ok {
		return float64(n), true
	}
	return 0, false
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch x := raw.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case string, []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(text(x)))
		return d, err == nil
	}
	if n, ok := toInt64(raw); ok {
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

func toTime(raw any) (time.Time, bool) {
	switch x := raw.(type) {
	case time.Time:
		return x, true
	case string, []byte:
		s := strings.TrimSpace(text(x))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func text(raw any) string {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw.(string)
}

// Normalize maps equal values of different Go representations onto one
// comparable form: integers to int64, float32 to float64, decimals and byte
// slices to strings and times to UTC.
func Normalize(v any) any {
	switch x := v.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		n, _ := toInt64(x)
		return n
	case float32:
		return float64(x)
	case decimal.Decimal:
		return x.String()
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}
