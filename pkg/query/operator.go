package query

import (
	"strings"

	"github.com/restview/restview/pkg/apperror"
)

// Op enumerates the comparison operators a filter leaf can carry.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpNull
	OpLike
	OpNotLike
	OpILike
	OpNotILike
	OpBetween
	OpNotBetween
	OpContains
	OpContained
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNeq:
		return "neq"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpIn:
		return "in"
	case OpNotIn:
		return "notin"
	case OpNull:
		return "null"
	case OpLike:
		return "like"
	case OpNotLike:
		return "notlike"
	case OpILike:
		return "ilike"
	case OpNotILike:
		return "notilike"
	case OpBetween:
		return "between"
	case OpNotBetween:
		return "notbetween"
	case OpContains:
		return "contains"
	case OpContained:
		return "contained"
	default:
		return "unknown"
	}
}

// Operator is one decoded comparison: an operator tag plus its operands.
// Arity by operator: Null carries one Bool (true = IS NULL), Between and
// NotBetween carry exactly two same-kind scalars, In/NotIn/Contains/Contained
// carry a homogeneous list, everything else carries one scalar.
type Operator struct {
	Op   Op
	Args []Scalar
}

// comparison sigils, longest first so "!~*" never matches as "!" + "~*"
var likeSigils = []struct {
	prefix string
	op     Op
}{
	{"!~*", OpNotILike},
	{"~*", OpILike},
	{"!~", OpNotLike},
	{"~", OpLike},
}

var rangeSigils = []struct {
	prefix string
	op     Op
}{
	{">=", OpGte},
	{"<=", OpLte},
	{">", OpGt},
	{"<", OpLt},
}

// DecodeOperator maps one raw query value to an operator node using the sigil
// grammar. The precedence order is load-bearing: empty and bare "!" are null
// tests, a fully numeric token is a plain equality before any prefix is
// considered, comparisons need a numberish operand, ".." makes a range, a
// comma makes a set form, "~" variants are pattern matches, and a leading "!"
// on anything else negates equality.
func DecodeOperator(raw string) (Operator, error) {
	if raw == "" {
		return Operator{Op: OpNull, Args: []Scalar{Bool(true)}}, nil
	}
	if raw == "!" {
		return Operator{Op: OpNull, Args: []Scalar{Bool(false)}}, nil
	}
	if s, ok := parseNumber(raw); ok {
		return Operator{Op: OpEq, Args: []Scalar{s}}, nil
	}

	for _, sig := range rangeSigils {
		if strings.HasPrefix(raw, sig.prefix) {
			operand := Coerce(raw[len(sig.prefix):])
			if !operand.numberish() {
				return Operator{}, apperror.InvalidOperator(
					"%q requires a number, big integer or date operand, got %s",
					sig.prefix, operand.Kind())
			}
			return Operator{Op: sig.op, Args: []Scalar{operand}}, nil
		}
	}

	if strings.Contains(raw, "..") {
		return decodeRange(raw)
	}
	if strings.Contains(raw, ",") {
		return decodeList(raw)
	}

	for _, sig := range likeSigils {
		if strings.HasPrefix(raw, sig.prefix) {
			// pattern operand stays a raw string, no coercion
			return Operator{Op: sig.op, Args: []Scalar{String(raw[len(sig.prefix):])}}, nil
		}
	}

	if strings.HasPrefix(raw, "!") {
		return Operator{Op: OpNeq, Args: []Scalar{Coerce(raw[1:])}}, nil
	}
	return Operator{Op: OpEq, Args: []Scalar{Coerce(raw)}}, nil
}

func decodeRange(raw string) (Operator, error) {
	op := OpBetween
	body := raw
	if strings.HasPrefix(body, "!") {
		op = OpNotBetween
		body = body[1:]
	}
	parts := strings.SplitN(body, "..", 2)
	if parts[0] == "" || parts[1] == "" {
		return Operator{}, apperror.InvalidOperator("range needs both bounds, got %q", raw)
	}
	lo, hi := Coerce(parts[0]), Coerce(parts[1])
	if lo.Kind() != hi.Kind() {
		return Operator{}, apperror.InvalidOperator(
			"range bounds must share a type, got %s and %s", lo.Kind(), hi.Kind())
	}
	return Operator{Op: op, Args: []Scalar{lo, hi}}, nil
}

func decodeList(raw string) (Operator, error) {
	op := OpIn
	body := raw
	switch {
	case strings.HasPrefix(body, "@>"):
		op = OpContained
		body = body[2:]
	case strings.HasPrefix(body, "@"):
		op = OpContains
		body = body[1:]
	case strings.HasPrefix(body, "!"):
		op = OpNotIn
		body = body[1:]
	}
	args, err := CoerceSlice(strings.Split(body, ","))
	if err != nil {
		return Operator{}, err
	}
	return Operator{Op: op, Args: args}, nil
}
