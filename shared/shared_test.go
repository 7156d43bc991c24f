package shared_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hotel/shared"
	cacheMocks "hotel/shared/cache/mocks"
	"hotel/shared/constant"
	"hotel/shared/dto"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConvertStringToInt64(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "42", want: 42},
		{input: " 1735689600 ", want: 1735689600},
		{input: "-7", want: -7},
		{input: "tomorrow", wantErr: true},
		{input: "", wantErr: true},
		{input: "3.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got, err := shared.ConvertStringToInt64(tt.input)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{total: 0, limit: 10, want: 1},
		{total: 25, limit: 0, want: 1},
		{total: 25, limit: -1, want: 1},
		{total: 20, limit: 10, want: 2},
		{total: 21, limit: 10, want: 3},
		{total: 3, limit: 50, want: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, shared.CalculateTotalPage(tt.total, tt.limit))
		})
	}
}

type roomPatch struct {
	Name      string  `db:"name"`
	Capacity  int     `db:"capacity"`
	Notes     string  `db:"-"`
	Untagged  string
	Price     *string `db:"price_per_night"`
	Published *bool   `db:"is_published"`
	Floor     *int    `db:"floor"`
}

func TestTransformFields(t *testing.T) {
	price := "129.90"
	published := false
	floor := 0

	tests := []struct {
		name  string
		input any
		want  map[string]any
	}{
		{
			name:  "zero values are skipped",
			input: roomPatch{Notes: "ignored", Untagged: "ignored"},
			want:  map[string]any{},
		},
		{
			name:  "set values are kept",
			input: roomPatch{Name: "Deluxe 301", Capacity: 2},
			want:  map[string]any{"name": "Deluxe 301", "capacity": 2},
		},
		{
			name:  "pointers keep their zero targets",
			input: roomPatch{Price: &price, Published: &published, Floor: &floor},
			want:  map[string]any{"price_per_night": "129.90", "is_published": false, "floor": 0},
		},
		{
			name:  "pointer to struct is dereferenced",
			input: &roomPatch{Name: "Suite 12"},
			want:  map[string]any{"name": "Suite 12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shared.TransformFields(tt.input, "7")

			assert.Equal(t, "7", got[constant.FieldModifiedBy])
			edited, ok := got[constant.FieldDateEdit].(int64)
			require.True(t, ok)
			assert.Positive(t, edited)

			delete(got, constant.FieldModifiedBy)
			delete(got, constant.FieldDateEdit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSoftDeleteFields(t *testing.T) {
	got := shared.SoftDeleteFields("42")

	deleted, ok := got[constant.FieldDateDelete].(int64)
	require.True(t, ok)
	assert.Positive(t, deleted)
	assert.Equal(t, deleted, got[constant.FieldDateEdit])
	assert.Equal(t, "42", got[constant.FieldModifiedBy])
}

func TestFilterByID(t *testing.T) {
	got := shared.FilterByID(int64(5), "room_id", "bookings")

	require.Len(t, got.Filters, 1)
	assert.Equal(t, dto.Filter{
		Field:    "room_id",
		Value:    int64(5),
		Operator: dto.FilterOperatorEq,
		Table:    "bookings",
	}, got.Filters[0])
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "room:get:12", shared.BuildCacheKey("room:get", int64(12)))
	assert.Equal(t, "limiter:10.0.0.1:curl", shared.BuildCacheKey("limiter", "10.0.0.1", "curl"))
	assert.Equal(t, "booking:gets", shared.BuildCacheKey("booking:gets"))
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	params := dto.QueryParams{Page: 1, Limit: 20, SortBy: "id", SortDir: dto.SortDirDesc}
	room3 := shared.FilterByID(int64(3), "room_id", "bookings")
	room4 := shared.FilterByID(int64(4), "room_id", "bookings")

	first := shared.BuildCacheKeyWithQuery("booking:gets", params, room3)

	assert.Equal(t, first, shared.BuildCacheKeyWithQuery("booking:gets", params, room3))
	assert.NotEqual(t, first, shared.BuildCacheKeyWithQuery("booking:gets", params, room4))
	assert.Contains(t, first, "booking:gets:1:20:id:DESC")
}

func TestInvalidateCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	gomock.InOrder(
		mockCache.EXPECT().Clear(gomock.Any(), "room:gets*").Return(nil),
		mockCache.EXPECT().Clear(gomock.Any(), "room:count*").Return(errors.New("redis down")),
		mockCache.EXPECT().Clear(gomock.Any(), "room:*").Return(errors.New("redis down")),
		mockCache.EXPECT().Clear(gomock.Any(), "booking:*").Return(nil),
	)

	shared.InvalidateCaches(context.Background(), mockCache, "room:gets")
	shared.InvalidateCaches(context.Background(), mockCache, "room:count")
	shared.InvalidateCaches(context.Background(), mockCache, "room:", "booking:")
	shared.InvalidateCaches(context.Background(), mockCache)
}

func TestIsPqViolation(t *testing.T) {
	unique := &pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation), Constraint: "users_email_key"}

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "direct", err: unique, code: constant.PqErrorCodeUniqueViolation, want: true},
		{name: "wrapped", err: fmt.Errorf("insert user: %w", unique), code: constant.PqErrorCodeUniqueViolation, want: true},
		{name: "other code", err: unique, code: constant.PqErrorCodeCheckViolation},
		{name: "not a pq error", err: errors.New("connection refused"), code: constant.PqErrorCodeUniqueViolation},
		{name: "nil", code: constant.PqErrorCodeUniqueViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shared.IsPqViolation(tt.err, tt.code))
		})
	}
}
