// Package resource turns a table into a set of CRUD operations: list with
// filtering/ordering/pagination, create, retrieve, update, destroy and
// search, plus caller-supplied custom actions. A Binding is built once at
// registration time and serves concurrent requests without further locking.
package resource

import (
	"context"
	"net/http"

	"github.com/restview/restview/pkg/apperror"
	"github.com/restview/restview/pkg/query"
	"github.com/restview/restview/pkg/schema"
	"go.uber.org/zap"
)

// Operation names one of the six canonical resource operations.
type Operation string

const (
	OpList     Operation = "list"
	OpCreate   Operation = "create"
	OpRetrieve Operation = "retrieve"
	OpUpdate   Operation = "update"
	OpDestroy  Operation = "destroy"
	OpSearch   Operation = "search"
)

// AllOperations lists every canonical operation, in registration order.
var AllOperations = []Operation{OpList, OpCreate, OpRetrieve, OpUpdate, OpDestroy, OpSearch}

// KeyPolicy holds the resolved identifying column per keyed operation.
type KeyPolicy struct {
	Retrieve string
	Update   string
	Delete   string
}

// KeyPolicyConfig optionally pins the key column per operation. Empty
// entries fall back to the table's single detected primary key.
type KeyPolicyConfig struct {
	Retrieve string
	Update   string
	Delete   string
}

// resolveKeyPolicy resolves every keyed operation or fails. The fallback is
// deliberate and fallible: it applies only when the table has exactly one
// primary key column, never a silent pick from a composite key.
func resolveKeyPolicy(cfg KeyPolicyConfig, table schema.Table) (KeyPolicy, error) {
	resolve := func(explicit, op string) (string, error) {
		if explicit != "" {
			if _, ok := table.ColumnByName(explicit); !ok {
				return "", apperror.MissingPrimaryKey(table.Name, op).
					WithDetail("configured", explicit)
			}
			return explicit, nil
		}
		if len(table.PrimaryKeys) == 1 {
			return table.PrimaryKeys[0], nil
		}
		return "", apperror.MissingPrimaryKey(table.Name, op).
			WithDetail("detected_primary_keys", table.PrimaryKeys)
	}

	var policy KeyPolicy
	var err error
	if policy.Retrieve, err = resolve(cfg.Retrieve, "retrieve"); err != nil {
		return KeyPolicy{}, err
	}
	if policy.Update, err = resolve(cfg.Update, "update"); err != nil {
		return KeyPolicy{}, err
	}
	if policy.Delete, err = resolve(cfg.Delete, "delete"); err != nil {
		return KeyPolicy{}, err
	}
	return policy, nil
}

// Schemas holds the per-operation row schemas.
type Schemas struct {
	List     *schema.RowSchema
	Create   *schema.RowSchema
	Retrieve *schema.RowSchema
	Update   *schema.RowSchema
}

// SearchFunc implements free-text matching over the searchable fields. The
// built-in search returns no matches; callers plug their own matcher here.
type SearchFunc func(ctx context.Context, q string) ([]Row, error)

// Action is a caller-defined endpoint registered alongside the canonical
// operations. Detail appends the resource identifier segment to the path.
type Action struct {
	Name    string
	Path    string
	Method  string // default GET
	Detail  bool
	Handler http.HandlerFunc
}

// Config assembles a resource binding.
type Config struct {
	Table  schema.Table
	DB     Querier
	Logger *zap.Logger

	Keys KeyPolicyConfig

	// field subsets per operation schema; empty means all columns
	ListFields     []string
	CreateFields   []string
	RetrieveFields []string
	UpdateFields   []string

	FilterableFields []string
	OrderableFields  []string
	SearchableFields []string

	DefaultOrder string
	PageMode     query.PageMode
	PageSize     int

	// Overrides fully replace an operation's built-in handler.
	Overrides map[Operation]http.HandlerFunc

	Actions []Action

	Search SearchFunc
}

// DefaultPageSize applies when the config leaves PageSize unset.
const DefaultPageSize = 50

// Binding is one registered resource. Immutable after New; shared read-only
// across concurrent requests.
type Binding struct {
	table      schema.Table
	db         Querier
	logger     *zap.Logger
	keys       KeyPolicy
	schemas    Schemas
	filterable []string
	orderable  []string
	searchable []string

	orderParser        *query.OrderParser
	defaultOrderParser *query.OrderParser
	defaultOrder       string

	pageMode query.PageMode
	pageSize int

	overrides map[Operation]http.HandlerFunc
	actions   []Action
	search    SearchFunc
}

// New builds a Binding, resolving the key policy and compiling the schemas
// and ordering validators. All configuration errors are fatal here so a
// misconfigured resource never serves a request.
func New(cfg Config) (*Binding, error) {
	keys, err := resolveKeyPolicy(cfg.Keys, cfg.Table)
	if err != nil {
		return nil, err
	}

	schemas := Schemas{}
	if schemas.List, err = schema.NewRowSchema("list", cfg.Table, cfg.ListFields, schema.RowSchemaOptions{}); err != nil {
		return nil, err
	}
	if schemas.Create, err = schema.NewRowSchema("create", cfg.Table, cfg.CreateFields, schema.RowSchemaOptions{MarkRequired: true}); err != nil {
		return nil, err
	}
	if schemas.Retrieve, err = schema.NewRowSchema("retrieve", cfg.Table, cfg.RetrieveFields, schema.RowSchemaOptions{}); err != nil {
		return nil, err
	}
	if schemas.Update, err = schema.NewRowSchema("update", cfg.Table, cfg.UpdateFields, schema.RowSchemaOptions{}); err != nil {
		return nil, err
	}

	orderable := cfg.OrderableFields
	if len(orderable) == 0 {
		orderable = cfg.Table.ColumnNames()
	}

	b := &Binding{
		table:              cfg.Table,
		db:                 cfg.DB,
		logger:             cfg.Logger,
		keys:               keys,
		schemas:            schemas,
		filterable:         cfg.FilterableFields,
		orderable:          orderable,
		searchable:         cfg.SearchableFields,
		orderParser:        query.NewOrderParser(orderable),
		defaultOrderParser: query.NewOrderParser(cfg.Table.ColumnNames()),
		defaultOrder:       cfg.DefaultOrder,
		pageMode:           cfg.PageMode,
		pageSize:           cfg.PageSize,
		overrides:          cfg.Overrides,
		actions:            cfg.Actions,
		search:             cfg.Search,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.pageSize < 1 {
		b.pageSize = DefaultPageSize
	}

	// a bad configured default ordering is a registration error, not a
	// per-request one
	if _, err := b.defaultOrderParser.Parse(b.defaultOrder); err != nil {
		return nil, err
	}

	return b, nil
}

// Name returns the bound table's name.
func (b *Binding) Name() string { return b.table.Name }

// Keys returns the resolved key policy.
func (b *Binding) Keys() KeyPolicy { return b.keys }
