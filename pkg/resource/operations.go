package resource

import (
	"context"
	"net/url"
	"strconv"

	"github.com/restview/restview/pkg/apperror"
	"github.com/restview/restview/pkg/query"
	"github.com/restview/restview/pkg/schema"
)

// PageInfo describes the pagination envelope of a paginated listing.
type PageInfo struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// ListResult is the outcome of a listing: the rows, plus pagination metadata
// when the listing paginated.
type ListResult struct {
	Items []Row
	Page  *PageInfo
}

// List builds the query plan from the raw query parameters (filter tree when
// filterable fields are configured, ordering, pagination), executes it in one
// round trip with the total row count riding along as a window aggregate, and
// validates each row against the list schema.
func (b *Binding) List(ctx context.Context, params url.Values) (*ListResult, error) {
	var filter *query.Node
	if len(b.filterable) > 0 {
		parsed, err := query.ParseFilter(params, b.filterable)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	order, err := b.orderParser.Parse(params.Get("sort"))
	if err != nil {
		return nil, err
	}
	if order == nil {
		// config-supplied default, validated against the full column set
		order, err = b.defaultOrderParser.Parse(b.defaultOrder)
		if err != nil {
			return nil, err
		}
	}

	page := query.ResolvePage(params.Get("page"), b.pageMode, b.requestPageSize(params))

	sql, args, err := query.BuildList(b.table.Name, b.schemas.List.FieldNames(), filter, order, page)
	if err != nil {
		return nil, apperror.Backend(err)
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	total := 0
	if page.Enabled && len(rows) > 0 {
		total = countFromRow(rows[0])
	}

	items := make([]Row, 0, len(rows))
	for _, row := range rows {
		validated, err := b.schemas.List.ValidateRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, validated)
	}

	result := &ListResult{Items: items}
	if page.Enabled {
		result.Page = &PageInfo{
			Page:      page.Number,
			PageSize:  page.Size,
			PageCount: page.PageCount(total),
			Total:     total,
		}
	}
	return result, nil
}

// requestPageSize honors a per-request "size" override, falling back to the
// configured page size.
func (b *Binding) requestPageSize(params url.Values) int {
	if raw := params.Get("size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			return size
		}
	}
	return b.pageSize
}

func countFromRow(row Row) int {
	switch v := row[query.CountColumn].(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Create validates the body against the create schema, persists, and returns
// the persisted row re-validated against the same schema.
func (b *Binding) Create(ctx context.Context, body Row) (Row, error) {
	validated, err := b.schemas.Create.Validate(body)
	if err != nil {
		return nil, err
	}

	sql, args, err := query.BuildInsert(b.table.Name, validated, b.schemas.Create.FieldNames())
	if err != nil {
		return nil, apperror.Backend(err)
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.New(apperror.KindBackend, "insert returned no row")
	}
	return b.schemas.Create.ValidateRow(rows[0])
}

// Retrieve fetches one row by the retrieve key column and validates it
// against the retrieve schema.
func (b *Binding) Retrieve(ctx context.Context, rawKey string) (Row, error) {
	keyValue, err := b.coerceKey(b.keys.Retrieve, rawKey)
	if err != nil {
		return nil, err
	}

	sql, args, err := query.BuildGet(b.table.Name, b.schemas.Retrieve.FieldNames(), b.keys.Retrieve, keyValue)
	if err != nil {
		return nil, apperror.Backend(err)
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound(b.table.Name, rawKey)
	}
	return b.schemas.Retrieve.ValidateRow(rows[0])
}

// Update validates the body against the update schema, persists, and returns
// the updated row shaped by the retrieve schema: input validation and output
// representation deliberately differ, the client always sees the canonical
// form.
func (b *Binding) Update(ctx context.Context, rawKey string, body Row) (Row, error) {
	validated, err := b.schemas.Update.Validate(body)
	if err != nil {
		return nil, err
	}

	keyValue, err := b.coerceKey(b.keys.Update, rawKey)
	if err != nil {
		return nil, err
	}

	sql, args, err := query.BuildUpdate(b.table.Name, validated, b.keys.Update, keyValue, b.schemas.Retrieve.FieldNames())
	if err != nil {
		return nil, apperror.Backend(err)
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound(b.table.Name, rawKey)
	}
	return b.schemas.Retrieve.ValidateRow(rows[0])
}

// Destroy deletes one row by the delete key column and returns the deleted
// key's value.
func (b *Binding) Destroy(ctx context.Context, rawKey string) (any, error) {
	keyValue, err := b.coerceKey(b.keys.Delete, rawKey)
	if err != nil {
		return nil, err
	}

	sql, args, err := query.BuildDelete(b.table.Name, b.keys.Delete, keyValue)
	if err != nil {
		return nil, apperror.Backend(err)
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound(b.table.Name, rawKey)
	}
	return rows[0][b.keys.Delete], nil
}

// Search matches free text across the searchable fields. Empty input
// short-circuits to an empty result. The default matcher finds nothing;
// real matching plugs in through Config.Search.
func (b *Binding) Search(ctx context.Context, q string) ([]Row, error) {
	if q == "" {
		return []Row{}, nil
	}
	if b.search != nil {
		return b.search(ctx, q)
	}
	return []Row{}, nil
}

// coerceKey converts the raw path value to the key column's type. A value
// that cannot be the column's type cannot match any row.
func (b *Binding) coerceKey(column, rawKey string) (any, error) {
	col, ok := b.table.ColumnByName(column)
	if !ok {
		return nil, apperror.MissingPrimaryKey(b.table.Name, "key lookup").WithDetail("column", column)
	}
	value, err := schema.CoerceKey(col, rawKey)
	if err != nil {
		return nil, apperror.NotFound(b.table.Name, rawKey).WithCause(err)
	}
	return value, nil
}
