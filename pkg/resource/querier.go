package resource

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restview/restview/pkg/apperror"
)

// Row is one result row, column name to value.
type Row = map[string]any

// Querier is the narrow data-access contract the orchestrator depends on:
// execute one parameterized statement, get the resulting rows. Statements
// with RETURNING surface their rows the same way.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// PoolQuerier runs statements on a pgx connection pool.
type PoolQuerier struct {
	pool *pgxpool.Pool
}

func NewPoolQuerier(pool *pgxpool.Pool) *PoolQuerier {
	return &PoolQuerier{pool: pool}
}

func (q *PoolQuerier) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.Backend(err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	columnNames := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columnNames[i] = string(fd.Name)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePointers := make([]any, len(columnNames))
		for i := range values {
			valuePointers[i] = &values[i]
		}

		if err := rows.Scan(valuePointers...); err != nil {
			return nil, apperror.Backend(err)
		}

		rowMap := make(Row, len(columnNames))
		for i, name := range columnNames {
			rowMap[name] = values[i]
		}
		result = append(result, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Backend(err)
	}

	return result, nil
}
