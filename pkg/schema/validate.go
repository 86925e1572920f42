package schema

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/restview/restview/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Field is one named slot of a row schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Nullable bool
}

// RowSchema validates and coerces a field->value mapping against a subset of
// a table's columns. One schema exists per operation (list, create, retrieve,
// update) and is built once at resource registration.
type RowSchema struct {
	Name   string
	Fields []Field
	index  map[string]Field
}

// RowSchemaOptions control schema construction.
type RowSchemaOptions struct {
	// MarkRequired marks non-nullable, non-key columns as required, which is
	// what a create body must satisfy. Update and read schemas leave it off.
	MarkRequired bool
}

// NewRowSchema builds a schema named name over the given columns of table.
// Field names outside the table's column set are rejected.
func NewRowSchema(name string, table Table, fields []string, opts RowSchemaOptions) (*RowSchema, error) {
	if len(fields) == 0 {
		fields = table.ColumnNames()
	}

	s := &RowSchema{Name: name, index: make(map[string]Field, len(fields))}
	for _, fieldName := range fields {
		col, ok := table.ColumnByName(fieldName)
		if !ok {
			return nil, fmt.Errorf("schema %q: table %q has no column %q", name, table.Name, fieldName)
		}
		f := Field{
			Name:     col.Name,
			Type:     col.Type(),
			Required: opts.MarkRequired && !col.IsNullable && !col.IsPrimaryKey,
			Nullable: col.IsNullable,
		}
		s.Fields = append(s.Fields, f)
		s.index[f.Name] = f
	}
	return s, nil
}

// FieldNames returns the schema's field names in declaration order.
func (s *RowSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks data against the schema: unknown fields, missing required
// fields, null on non-nullable fields, and per-type coercion. On success it
// returns a coerced copy; on failure a SchemaValidationFailed error listing
// every offending field.
func (s *RowSchema) Validate(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	violations := make(map[string]any)

	for name, value := range data {
		f, ok := s.index[name]
		if !ok {
			violations[name] = "unknown field"
			continue
		}
		if value == nil {
			if !f.Nullable {
				violations[name] = "must not be null"
				continue
			}
			out[name] = nil
			continue
		}
		coerced, err := coerceField(f, value)
		if err != nil {
			violations[name] = err.Error()
			continue
		}
		out[name] = coerced
	}

	for _, f := range s.Fields {
		if f.Required {
			if _, present := data[f.Name]; !present {
				violations[f.Name] = "required"
			}
		}
	}

	if len(violations) > 0 {
		return nil, apperror.SchemaValidation(s.Name, violations)
	}
	return out, nil
}

// ValidateRow coerces a storage row for output. Columns outside the schema
// are dropped rather than rejected; the projection already decided what the
// client sees.
func (s *RowSchema) ValidateRow(row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	violations := make(map[string]any)

	for _, f := range s.Fields {
		value, present := row[f.Name]
		if !present || value == nil {
			if present {
				out[f.Name] = nil
			}
			continue
		}
		coerced, err := coerceField(f, value)
		if err != nil {
			violations[f.Name] = err.Error()
			continue
		}
		out[f.Name] = coerced
	}

	if len(violations) > 0 {
		return nil, apperror.SchemaValidation(s.Name, violations)
	}
	return out, nil
}

var keyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceField(f Field, value any) (any, error) {
	switch f.Type {
	case TypeText:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", value)
	case TypeNumber:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64, float64, float32, decimal.Decimal:
			return v, nil
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i, nil
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, nil
			}
			if d, err := decimal.NewFromString(v); err == nil {
				return d, nil
			}
			return nil, fmt.Errorf("expected number, got %q", v)
		default:
			return nil, fmt.Errorf("expected number, got %T", value)
		}
	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected bool, got %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
	case TypeTime:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			for _, layout := range keyDateLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t, nil
				}
			}
			return nil, fmt.Errorf("unrecognized time %q", v)
		default:
			return nil, fmt.Errorf("expected time, got %T", value)
		}
	case TypeUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("invalid uuid %q", v)
			}
			return id, nil
		default:
			return nil, fmt.Errorf("expected uuid, got %T", value)
		}
	default: // TypeJSON, TypeUnknown pass through
		return value, nil
	}
}

// CoerceKey converts a raw path parameter into the typed value for the key
// column, so "7" matches an integer key and a uuid string a uuid key.
func CoerceKey(col Column, raw string) (any, error) {
	return coerceField(Field{Name: col.Name, Type: col.Type(), Nullable: false}, raw)
}
