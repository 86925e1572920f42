// Package query implements the query-string mini-language for list endpoints:
// typed value coercion, the operator sigil grammar, filter expression parsing
// with and/or/not groups, ordering, pagination, and compilation of the parsed
// plan to parameterized SQL.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/restview/restview/pkg/apperror"
	"github.com/shopspring/decimal"
)

// ScalarKind tags the variant held by a Scalar.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindNumber
	KindBigInt
	KindBool
	KindNull
	KindDate
)

func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Scalar is a typed query value: string, number, big integer, bool, null or
// date. Numbers that fit the safe-integer range stay Number; beyond that they
// become BigInt backed by an arbitrary-precision decimal.
type Scalar struct {
	kind     ScalarKind
	str      string
	num      float64
	integral bool
	big      decimal.Decimal
	b        bool
	t        time.Time
}

// MaxSafeInt is the largest integer exactly representable as a float64.
// Integer tokens beyond this magnitude coerce to BigInt instead of Number.
const MaxSafeInt = 1<<53 - 1

func String(s string) Scalar { return Scalar{kind: KindString, str: s} }
func Float(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }
func Bool(b bool) Scalar     { return Scalar{kind: KindBool, b: b} }
func Null() Scalar           { return Scalar{kind: KindNull} }

func Int(i int64) Scalar {
	return Scalar{kind: KindNumber, num: float64(i), integral: true}
}

func BigInt(d decimal.Decimal) Scalar { return Scalar{kind: KindBigInt, big: d} }

func Date(t time.Time) Scalar { return Scalar{kind: KindDate, t: t} }

// Kind reports the variant tag.
func (s Scalar) Kind() ScalarKind { return s.kind }

// Value returns the Go value to bind as a SQL argument.
func (s Scalar) Value() any {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		if s.integral {
			return int64(s.num)
		}
		return s.num
	case KindBigInt:
		return s.big
	case KindBool:
		return s.b
	case KindNull:
		return nil
	case KindDate:
		return s.t
	default:
		return nil
	}
}

// String re-serializes the scalar to its query-string form.
func (s Scalar) String() string {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		if s.integral {
			return strconv.FormatInt(int64(s.num), 10)
		}
		return strconv.FormatFloat(s.num, 'g', -1, 64)
	case KindBigInt:
		return s.big.String()
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindNull:
		return "null"
	case KindDate:
		return s.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// numberish reports whether the scalar can order on a numeric or temporal
// axis. Range and comparison operators require this.
func (s Scalar) numberish() bool {
	return s.kind == KindNumber || s.kind == KindBigInt || s.kind == KindDate
}

var (
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// dateLayouts are tried in order. A token that already parsed as a number
// never reaches these, so a plain year like "2024" stays numeric.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseNumber(raw string) (Scalar, bool) {
	if intPattern.MatchString(raw) {
		i, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && i <= MaxSafeInt && i >= -MaxSafeInt {
			return Int(i), true
		}
		d, derr := decimal.NewFromString(raw)
		if derr != nil {
			return Scalar{}, false
		}
		return BigInt(d), true
	}
	if floatPattern.MatchString(raw) {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Scalar{}, false
		}
		return Float(f), true
	}
	return Scalar{}, false
}

func parseDate(raw string) (Scalar, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date(t), true
		}
	}
	return Scalar{}, false
}

// Coerce converts a raw query token into a typed scalar. Order matters:
// boolean and null literals are intercepted before the numeric attempt, and
// the numeric attempt runs before the date attempt so a bare number is never
// read as a date.
func Coerce(raw string) Scalar {
	switch {
	case raw == "":
		return Null()
	case strings.EqualFold(raw, "true"):
		return Bool(true)
	case strings.EqualFold(raw, "false"):
		return Bool(false)
	case strings.EqualFold(raw, "null"):
		return Null()
	}
	if s, ok := parseNumber(raw); ok {
		return s
	}
	if s, ok := parseDate(raw); ok {
		return s
	}
	return String(raw)
}

// CoerceSlice coerces each element and rejects heterogeneous results: every
// element must land on the same variant or the whole array is refused.
func CoerceSlice(raws []string) ([]Scalar, error) {
	out := make([]Scalar, 0, len(raws))
	for _, raw := range raws {
		s := Coerce(raw)
		if len(out) > 0 && s.Kind() != out[0].Kind() {
			return nil, apperror.TypeMismatch(
				"mixed element types in list: %s and %s", out[0].Kind(), s.Kind())
		}
		out = append(out, s)
	}
	return out, nil
}
