package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"hotel/shared/failure"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "bad request", err: failure.BadRequest(errors.New("guest_name is required")), wantCode: http.StatusBadRequest, wantMsg: "guest_name is required"},
		{name: "bad request from string", err: failure.BadRequestFromString("id must be a positive integer"), wantCode: http.StatusBadRequest, wantMsg: "id must be a positive integer"},
		{name: "invalid state", err: failure.InvalidState("booking already cancelled"), wantCode: http.StatusBadRequest, wantMsg: "booking already cancelled"},
		{name: "unauthorized", err: failure.Unauthorized("invalid token"), wantCode: http.StatusUnauthorized, wantMsg: "invalid token"},
		{name: "forbidden", err: failure.Forbidden("admins only"), wantCode: http.StatusForbidden, wantMsg: "admins only"},
		{name: "forbidden error", err: failure.ForbiddenError, wantCode: http.StatusForbidden, wantMsg: "You don't have the required permissions"},
		{name: "not found", err: failure.NotFound("room not found"), wantCode: http.StatusNotFound, wantMsg: "room not found"},
		{name: "conflict", err: failure.Conflict("room is already booked for the selected dates"), wantCode: http.StatusConflict, wantMsg: "room is already booked for the selected dates"},
		{name: "internal", err: failure.InternalError(errors.New("boom")), wantCode: http.StatusInternalServerError, wantMsg: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, failure.GetCode(tt.err))
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, failure.Is(tt.err, tt.wantCode))
		})
	}
}

func TestNilPassThrough(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))
	assert.NoError(t, failure.InternalError(nil))
}

func TestGetCode_Chain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "wrapped failure", err: fmt.Errorf("failed to cancel booking: %w", failure.NotFound("booking not found")), want: http.StatusNotFound},
		{name: "doubly wrapped", err: fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", failure.Conflict("taken"))), want: http.StatusConflict},
		{name: "plain error", err: errors.New("pq: deadlock detected"), want: http.StatusInternalServerError},
		{name: "wrapped plain error", err: fmt.Errorf("failed to lock room: %w", errors.New("timeout")), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failure.GetCode(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("update: %w", failure.InvalidState("room is under maintenance"))

	assert.True(t, failure.Is(err, http.StatusBadRequest))
	assert.False(t, failure.Is(err, http.StatusConflict))
	assert.False(t, failure.Is(errors.New("plain"), http.StatusInternalServerError))
	assert.False(t, failure.Is(nil, http.StatusNotFound))
}
