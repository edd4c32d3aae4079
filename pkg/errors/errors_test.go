package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"not found", NotFound("patient", nil), http.StatusNotFound},
		{"bad request", BadRequest("invalid id", nil), http.StatusBadRequest},
		{"bad input", BadInput("empty file", nil), http.StatusBadRequest},
		{"empty batch", EmptyBatch(), http.StatusBadRequest},
		{"conflict", Conflict("letter already approved", nil), http.StatusConflict},
		{"too large", TooLarge(10), http.StatusRequestEntityTooLarge},
		{"rate limited", RateLimited(), http.StatusTooManyRequests},
		{"timeout", Timeout(nil), http.StatusGatewayTimeout},
		{"unavailable", Unavailable("database down", nil), http.StatusServiceUnavailable},
		{"internal", Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestEmptyBatchIsDistinctFromBadInput(t *testing.T) {
	empty := EmptyBatch()
	bad := BadInput("empty file", nil)

	assert.Equal(t, empty.StatusCode(), bad.StatusCode())
	assert.NotEqual(t, empty.Code.String(), bad.Code.String())
	assert.Equal(t, "EMPTY_BATCH", empty.Code.String())
	assert.Equal(t, "no usable result rows in file", empty.Message)
}

func TestAsUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("ingest: %w", NotFound("patient", sql.ErrNoRows))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, appErr.Code)
	assert.ErrorIs(t, wrapped, sql.ErrNoRows)
	assert.True(t, HasCode(wrapped, ErrNotFound))
	assert.False(t, HasCode(wrapped, ErrConflict))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "patient not found", NotFound("patient", nil).Error())
	assert.Equal(t, "bad: cause", BadRequest("bad", fmt.Errorf("cause")).Error())
}
