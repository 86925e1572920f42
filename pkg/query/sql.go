package query

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// CountColumn is the alias of the window count selected alongside a paginated
// listing, so the total arrives in the same round trip as the page.
const CountColumn = "__count"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// quoteIdent quotes a PostgreSQL identifier, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func scalarValues(args []Scalar) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value()
	}
	return out
}

// ToSqlizer compiles a filter node to a squirrel predicate. Matching is
// exhaustive over the operator set; an operator this function does not know
// is a programming error, not a request error.
func ToSqlizer(n *Node) (sq.Sqlizer, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case NodeLeaf:
		return leafSqlizer(n)
	case NodeAnd, NodeOr:
		parts := make([]sq.Sqlizer, 0, len(n.Children))
		for _, child := range n.Children {
			part, err := ToSqlizer(child)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if n.Kind == NodeAnd {
			return sq.And(parts), nil
		}
		return sq.Or(parts), nil
	case NodeNot:
		child, err := ToSqlizer(n.Children[0])
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", child), nil
	default:
		return nil, fmt.Errorf("unknown filter node kind %d", n.Kind)
	}
}

func leafSqlizer(n *Node) (sq.Sqlizer, error) {
	col := quoteIdent(n.Field)
	op := n.Op
	switch op.Op {
	case OpEq:
		return sq.Eq{col: op.Args[0].Value()}, nil
	case OpNeq:
		return sq.NotEq{col: op.Args[0].Value()}, nil
	case OpGt:
		return sq.Gt{col: op.Args[0].Value()}, nil
	case OpGte:
		return sq.GtOrEq{col: op.Args[0].Value()}, nil
	case OpLt:
		return sq.Lt{col: op.Args[0].Value()}, nil
	case OpLte:
		return sq.LtOrEq{col: op.Args[0].Value()}, nil
	case OpIn:
		return sq.Eq{col: scalarValues(op.Args)}, nil
	case OpNotIn:
		return sq.NotEq{col: scalarValues(op.Args)}, nil
	case OpNull:
		if op.Args[0].Value() == true {
			return sq.Eq{col: nil}, nil
		}
		return sq.NotEq{col: nil}, nil
	case OpLike:
		return sq.Like{col: op.Args[0].Value()}, nil
	case OpNotLike:
		return sq.NotLike{col: op.Args[0].Value()}, nil
	case OpILike:
		return sq.ILike{col: op.Args[0].Value()}, nil
	case OpNotILike:
		return sq.NotILike{col: op.Args[0].Value()}, nil
	case OpBetween:
		return sq.Expr(col+" BETWEEN ? AND ?", op.Args[0].Value(), op.Args[1].Value()), nil
	case OpNotBetween:
		return sq.Expr(col+" NOT BETWEEN ? AND ?", op.Args[0].Value(), op.Args[1].Value()), nil
	case OpContains:
		return sq.Expr(col+" @> ?", scalarValues(op.Args)), nil
	case OpContained:
		return sq.Expr(col+" <@ ?", scalarValues(op.Args)), nil
	default:
		return nil, fmt.Errorf("unknown operator %s", op.Op)
	}
}

// BuildList compiles a full listing plan: projection, filter, ordering and,
// when paginating, limit/offset plus the window count column.
func BuildList(table string, columns []string, filter *Node, order OrderSpec, page Page) (string, []any, error) {
	cols := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		cols = append(cols, quoteIdent(c))
	}
	if page.Enabled {
		cols = append(cols, "count(*) OVER () AS "+CountColumn)
	}

	b := psql.Select(cols...).From(quoteIdent(table))

	if filter != nil {
		pred, err := ToSqlizer(filter)
		if err != nil {
			return "", nil, err
		}
		b = b.Where(pred)
	}

	for _, o := range order {
		b = b.OrderBy(quoteIdent(o.Field) + " " + strings.ToUpper(o.Direction.String()))
	}

	if page.Enabled {
		b = b.Limit(uint64(page.Size)).Offset(uint64(page.Offset()))
	}

	return b.ToSql()
}

// BuildGet compiles a single-row fetch by key column.
func BuildGet(table string, columns []string, keyColumn string, keyValue any) (string, []any, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
	}
	return psql.Select(cols...).
		From(quoteIdent(table)).
		Where(sq.Eq{quoteIdent(keyColumn): keyValue}).
		Limit(1).
		ToSql()
}

// BuildInsert compiles an insert returning the given columns. Column order
// is sorted so the generated SQL is deterministic.
func BuildInsert(table string, row map[string]any, returning []string) (string, []any, error) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = quoteIdent(k)
		vals[i] = row[k]
	}

	return psql.Insert(quoteIdent(table)).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + quoteIdents(returning)).
		ToSql()
}

// BuildUpdate compiles a keyed update returning the given columns.
func BuildUpdate(table string, set map[string]any, keyColumn string, keyValue any, returning []string) (string, []any, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := psql.Update(quoteIdent(table))
	for _, k := range keys {
		b = b.Set(quoteIdent(k), set[k])
	}
	return b.Where(sq.Eq{quoteIdent(keyColumn): keyValue}).
		Suffix("RETURNING " + quoteIdents(returning)).
		ToSql()
}

// BuildDelete compiles a keyed delete returning the key column.
func BuildDelete(table string, keyColumn string, keyValue any) (string, []any, error) {
	return psql.Delete(quoteIdent(table)).
		Where(sq.Eq{quoteIdent(keyColumn): keyValue}).
		Suffix("RETURNING " + quoteIdent(keyColumn)).
		ToSql()
}

func quoteIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
