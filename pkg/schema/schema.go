// Package schema maintains PostgreSQL table metadata for the resource layer:
// an in-memory cache of tables, columns and primary keys that reloads on
// notification, plus per-operation row schemas that validate and coerce
// request bodies and result rows.
package schema

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Table describes one table or view exposed as a resource.
type Table struct {
	Schema      string   `json:"schema"`
	Name        string   `json:"name"`
	Columns     []Column `json:"columns"`
	PrimaryKeys []string `json:"primary_keys"`
}

// Column describes one column of a table.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// FieldType classifies a column's data type for coercion purposes.
type FieldType int

const (
	TypeUnknown FieldType = iota
	TypeText
	TypeNumber
	TypeBool
	TypeTime
	TypeUUID
	TypeJSON
)

func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Type maps the column's PostgreSQL data type to a coercion class.
func (c Column) Type() FieldType {
	d := strings.ToLower(c.DataType)
	switch {
	case strings.Contains(d, "char"), strings.Contains(d, "text"), strings.Contains(d, "citext"):
		return TypeText
	case strings.Contains(d, "int"), strings.Contains(d, "numeric"), strings.Contains(d, "decimal"),
		strings.Contains(d, "real"), strings.Contains(d, "double"):
		return TypeNumber
	case strings.Contains(d, "bool"):
		return TypeBool
	case strings.Contains(d, "time"), strings.Contains(d, "date"):
		return TypeTime
	case strings.Contains(d, "uuid"):
		return TypeUUID
	case strings.Contains(d, "json"):
		return TypeJSON
	default:
		return TypeUnknown
	}
}

func (t *Table) fullName() string {
	return t.Schema + "." + t.Name
}

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnByName finds a column by name.
func (t *Table) ColumnByName(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func loadAll(ctx context.Context, pool *pgxpool.Pool, schemaName string) (map[string]Table, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		UNION ALL
		SELECT table_schema, table_name
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_schema, table_name`, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]Table)
	var names []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, err
		}
		names = append(names, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range names {
		cols, pkeys, err := queryColumns(ctx, pool, t.Schema, t.Name)
		if err != nil {
			return nil, err
		}
		t.Columns = cols
		t.PrimaryKeys = pkeys
		tables[t.fullName()] = t
	}
	return tables, nil
}

func queryColumns(ctx context.Context, pool *pgxpool.Pool, schema, table string) ([]Column, []string, error) {
	rows, err := pool.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = $1
					AND tc.table_name = $2
					AND kcu.column_name = c.column_name
			) AS is_primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, table)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var cols []Column
	var pkeys []string
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.IsPrimaryKey); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
		if col.IsPrimaryKey {
			pkeys = append(pkeys, col.Name)
		}
	}
	return cols, pkeys, rows.Err()
}
