package schema

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restview/restview/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleTable() Table {
	return Table{
		Schema: "public",
		Name:   "people",
		Columns: []Column{
			{Name: "id", DataType: "integer", IsPrimaryKey: true},
			{Name: "name", DataType: "text"},
			{Name: "age", DataType: "integer", IsNullable: true},
			{Name: "active", DataType: "boolean", IsNullable: true},
			{Name: "joined_at", DataType: "timestamp with time zone", IsNullable: true},
			{Name: "ref", DataType: "uuid", IsNullable: true},
		},
		PrimaryKeys: []string{"id"},
	}
}

func TestNewRowSchema(t *testing.T) {
	table := peopleTable()

	s, err := NewRowSchema("create", table, []string{"name", "age"}, RowSchemaOptions{MarkRequired: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, s.FieldNames())
	assert.True(t, s.Fields[0].Required)  // name: not nullable
	assert.False(t, s.Fields[1].Required) // age: nullable

	// empty field list means all columns
	s, err = NewRowSchema("list", table, nil, RowSchemaOptions{})
	require.NoError(t, err)
	assert.Len(t, s.Fields, 6)

	_, err = NewRowSchema("bad", table, []string{"email"}, RowSchemaOptions{})
	require.Error(t, err)
}

func TestValidateCoercion(t *testing.T) {
	table := peopleTable()
	s, err := NewRowSchema("create", table, []string{"name", "age", "active", "joined_at", "ref"}, RowSchemaOptions{MarkRequired: true})
	require.NoError(t, err)

	id := uuid.New()
	out, err := s.Validate(map[string]any{
		"name":      "ada",
		"age":       float64(36), // JSON numbers arrive as float64
		"active":    true,
		"joined_at": "2024-05-01T10:00:00Z",
		"ref":       id.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", out["name"])
	assert.Equal(t, float64(36), out["age"])
	assert.Equal(t, true, out["active"])
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), out["joined_at"])
	assert.Equal(t, id, out["ref"])
}

func TestValidateViolations(t *testing.T) {
	table := peopleTable()
	s, err := NewRowSchema("create", table, []string{"name", "age"}, RowSchemaOptions{MarkRequired: true})
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{
		"age":   "not-a-number",
		"email": "x@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindSchemaValidation, apperror.KindOf(err))

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "age")   // bad type
	assert.Contains(t, appErr.Details, "email") // unknown field
	assert.Contains(t, appErr.Details, "name")  // missing required
}

func TestValidateNullHandling(t *testing.T) {
	table := peopleTable()
	s, err := NewRowSchema("update", table, []string{"name", "age"}, RowSchemaOptions{})
	require.NoError(t, err)

	out, err := s.Validate(map[string]any{"age": nil})
	require.NoError(t, err)
	assert.Nil(t, out["age"])

	_, err = s.Validate(map[string]any{"name": nil})
	require.Error(t, err)
	assert.Equal(t, apperror.KindSchemaValidation, apperror.KindOf(err))
}

func TestValidateRowDropsUnknownColumns(t *testing.T) {
	table := peopleTable()
	s, err := NewRowSchema("list", table, []string{"id", "name"}, RowSchemaOptions{})
	require.NoError(t, err)

	out, err := s.ValidateRow(map[string]any{
		"id":      int64(1),
		"name":    "ada",
		"__count": int64(25),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "ada"}, out)
}

func TestCoerceKey(t *testing.T) {
	table := peopleTable()

	idCol, ok := table.ColumnByName("id")
	require.True(t, ok)
	v, err := CoerceKey(idCol, "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	refCol, ok := table.ColumnByName("ref")
	require.True(t, ok)
	id := uuid.New()
	v, err = CoerceKey(refCol, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, v)

	_, err = CoerceKey(idCol, "not-a-number")
	require.Error(t, err)
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		dataType string
		expected FieldType
	}{
		{"text", TypeText},
		{"character varying", TypeText},
		{"integer", TypeNumber},
		{"numeric", TypeNumber},
		{"double precision", TypeNumber},
		{"boolean", TypeBool},
		{"timestamp with time zone", TypeTime},
		{"date", TypeTime},
		{"uuid", TypeUUID},
		{"jsonb", TypeJSON},
		{"bytea", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			assert.Equal(t, tt.expected, Column{DataType: tt.dataType}.Type())
		})
	}
}
