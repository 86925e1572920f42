package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindUnknownFilterField, http.StatusBadRequest},
		{KindInvalidOperatorSyntax, http.StatusBadRequest},
		{KindTypeMismatch, http.StatusBadRequest},
		{KindNotImplemented, http.StatusBadRequest},
		{KindInvalidOrderSpec, http.StatusBadRequest},
		{KindSchemaValidation, http.StatusUnprocessableEntity},
		{KindNotFound, http.StatusNotFound},
		{KindBackend, http.StatusBadGateway},
		{KindMissingPrimaryKey, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, New(tt.kind, "x").HTTPStatus(), string(tt.kind))
	}
}

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("people", "7"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, New(KindNotFound, "")))
	assert.False(t, errors.Is(err, New(KindBackend, "")))
}

func TestAttachField(t *testing.T) {
	err := AttachField(InvalidOperator("bad range"), "age")
	assert.Equal(t, "age", FieldOf(err))

	// an existing attribution is not overwritten
	err = AttachField(UnknownFilterField("email"), "age")
	assert.Equal(t, "email", FieldOf(err))

	assert.Empty(t, FieldOf(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := Backend(errors.New("conn refused"))
	assert.Contains(t, err.Error(), "BACKEND_ERROR")
	assert.Contains(t, err.Error(), "conn refused")
	require.ErrorContains(t, err, "data access failed")

	withField := UnknownFilterField("email")
	assert.Equal(t, "UNKNOWN_FILTER_FIELD: email: field is not filterable", withField.Error())
}
