package response_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel/shared/failure"
	"hotel/transport/http/response"

	"github.com/stretchr/testify/assert"
)

func TestWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "conflict",
			err:      failure.Conflict("room is already booked for the selected dates"),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"room is already booked for the selected dates"}`,
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("failed to get booking: %w", failure.NotFound("booking not found")),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"booking not found"}`,
		},
		{
			name:     "failure under two wrappers",
			err:      fmt.Errorf("failed to update booking: %w", fmt.Errorf("failed to lock room: %w", failure.InvalidState("room is under maintenance"))),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"room is under maintenance"}`,
		},
		{
			name:     "infrastructure error is masked",
			err:      fmt.Errorf("failed to lock room: %w", errors.New("pq: connection refused")),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			response.WithError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithJSON(rec, http.StatusCreated, map[string]int64{"id": 11})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"id":11}}`, rec.Body.String())
}
