package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashcue/cashcue/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "invalid input",
			err:        fmt.Errorf("%w: quantity must be positive", service.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid input: quantity must be positive",
		},
		{
			name:       "invalid state",
			err:        fmt.Errorf("%w: broker account 5 is closed", service.ErrInvalidState),
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid state: broker account 5 is closed",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("%w: order 42", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   "not found: order 42",
		},
		{
			name:       "access denied hides detail",
			err:        fmt.Errorf("%w: user 9 does not own broker account 5", service.ErrAccessDenied),
			wantStatus: http.StatusForbidden,
			wantBody:   "access denied",
		},
		{
			name:       "unexpected errors hide detail",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(context.Background(), rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantBody, body.Error)
		})
	}
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusCreated, map[string]int64{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body successResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}
