package query

import (
	"testing"
	"time"

	"github.com/restview/restview/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOperator(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Operator
	}{
		{name: "empty is null test", raw: "", expected: Operator{Op: OpNull, Args: []Scalar{Bool(true)}}},
		{name: "bang is not-null test", raw: "!", expected: Operator{Op: OpNull, Args: []Scalar{Bool(false)}}},
		{name: "plain number is equality", raw: "5", expected: Operator{Op: OpEq, Args: []Scalar{Int(5)}}},
		{name: "plain float is equality", raw: "5.5", expected: Operator{Op: OpEq, Args: []Scalar{Float(5.5)}}},
		{name: "gte", raw: ">=5", expected: Operator{Op: OpGte, Args: []Scalar{Int(5)}}},
		{name: "lte", raw: "<=5", expected: Operator{Op: OpLte, Args: []Scalar{Int(5)}}},
		{name: "gt", raw: ">5", expected: Operator{Op: OpGt, Args: []Scalar{Int(5)}}},
		{name: "lt", raw: "<5", expected: Operator{Op: OpLt, Args: []Scalar{Int(5)}}},
		{name: "between numbers", raw: "1..5", expected: Operator{Op: OpBetween, Args: []Scalar{Int(1), Int(5)}}},
		{name: "between strings", raw: "a..z", expected: Operator{Op: OpBetween, Args: []Scalar{String("a"), String("z")}}},
		{name: "not between", raw: "!1..5", expected: Operator{Op: OpNotBetween, Args: []Scalar{Int(1), Int(5)}}},
		{name: "in list", raw: "1,2,3", expected: Operator{Op: OpIn, Args: []Scalar{Int(1), Int(2), Int(3)}}},
		{name: "not in list", raw: "!1,2", expected: Operator{Op: OpNotIn, Args: []Scalar{Int(1), Int(2)}}},
		{name: "contains", raw: "@a,b", expected: Operator{Op: OpContains, Args: []Scalar{String("a"), String("b")}}},
		{name: "contained", raw: "@>a,b", expected: Operator{Op: OpContained, Args: []Scalar{String("a"), String("b")}}},
		{name: "like", raw: "~foo%", expected: Operator{Op: OpLike, Args: []Scalar{String("foo%")}}},
		{name: "not like", raw: "!~foo%", expected: Operator{Op: OpNotLike, Args: []Scalar{String("foo%")}}},
		{name: "ilike", raw: "~*foo%", expected: Operator{Op: OpILike, Args: []Scalar{String("foo%")}}},
		{name: "not ilike", raw: "!~*foo%", expected: Operator{Op: OpNotILike, Args: []Scalar{String("foo%")}}},
		{name: "neq", raw: "!5", expected: Operator{Op: OpNeq, Args: []Scalar{Int(5)}}},
		{name: "neq string", raw: "!foo", expected: Operator{Op: OpNeq, Args: []Scalar{String("foo")}}},
		{name: "fallback equality", raw: "foo", expected: Operator{Op: OpEq, Args: []Scalar{String("foo")}}},
		{name: "equality on bool", raw: "true", expected: Operator{Op: OpEq, Args: []Scalar{Bool(true)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := DecodeOperator(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, op)
		})
	}
}

func TestDecodeOperatorDate(t *testing.T) {
	op, err := DecodeOperator(">=2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, OpGte, op.Op)
	assert.Equal(t, Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)), op.Args[0])
}

func TestDecodeOperatorErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind apperror.Kind
	}{
		{name: "comparison needs numberish", raw: ">=abc", kind: apperror.KindInvalidOperatorSyntax},
		{name: "comparison on bool", raw: "<true", kind: apperror.KindInvalidOperatorSyntax},
		{name: "range type mismatch", raw: "1..z", kind: apperror.KindInvalidOperatorSyntax},
		{name: "range missing upper bound", raw: "1..", kind: apperror.KindInvalidOperatorSyntax},
		{name: "heterogeneous in list", raw: "1,two", kind: apperror.KindTypeMismatch},
		{name: "heterogeneous not-in list", raw: "!1,two", kind: apperror.KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOperator(tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

// decode followed by re-serialization of the operand round-trips
func TestDecodeRoundTrip(t *testing.T) {
	op, err := DecodeOperator(">=5")
	require.NoError(t, err)
	assert.Equal(t, "5", op.Args[0].String())

	op, err = DecodeOperator("1,2,3")
	require.NoError(t, err)
	parts := make([]string, len(op.Args))
	for i, a := range op.Args {
		parts[i] = a.String()
	}
	assert.Equal(t, []string{"1", "2", "3"}, parts)
}
