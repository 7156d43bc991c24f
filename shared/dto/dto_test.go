package dto_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel/shared/constant"
	"hotel/shared/dto"
	"hotel/shared/model"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_FromModel(t *testing.T) {
	edited := int64(1767312000)

	var metadata dto.Metadata
	metadata.FromModel(model.Metadata{
		DateAdd:    1767225600,
		DateEdit:   &edited,
		CreatedBy:  "1",
		ModifiedBy: "2",
	})

	assert.Equal(t, dto.Metadata{
		DateAdd:    1767225600,
		DateEdit:   &edited,
		CreatedBy:  "1",
		ModifiedBy: "2",
	}, metadata)
}

func TestQueryParams_FromRequest(t *testing.T) {
	defaults := dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit}

	tests := []struct {
		name     string
		query    string
		defaults bool
		want     dto.QueryParams
	}{
		{
			name:  "all parameters",
			query: "page=2&limit=20&sort_by=price_per_night&sort_dir=asc",
			want:  dto.QueryParams{Page: 2, Limit: 20, SortBy: "price_per_night", SortDir: dto.SortDirAsc},
		},
		{name: "nothing without defaults", query: "", want: dto.QueryParams{}},
		{name: "nothing with defaults", query: "", defaults: true, want: defaults},
		{name: "page not a number", query: "page=first", defaults: true, want: defaults},
		{name: "page zero", query: "page=0", defaults: true, want: defaults},
		{name: "negative limit", query: "limit=-10", defaults: true, want: defaults},
		{name: "unknown direction", query: "sort_dir=sideways", defaults: true, want: defaults},
		{
			name:     "limit is capped",
			query:    "limit=500",
			defaults: true,
			want:     dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.MaxValueLimit},
		},
		{
			name:     "partial with defaults",
			query:    "page=3&sort_by=date_start",
			defaults: true,
			want:     dto.QueryParams{Page: 3, Limit: constant.DefaultValueLimit, SortBy: "date_start"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/bookings?"+tt.query, nil)

			var got dto.QueryParams
			got.FromRequest(req, tt.defaults)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryParams_WithDefaultSort(t *testing.T) {
	tests := []struct {
		name   string
		params dto.QueryParams
		want   dto.QueryParams
	}{
		{
			name:   "unknown column falls back",
			params: dto.QueryParams{SortBy: "password", SortDir: dto.SortDirAsc},
			want:   dto.QueryParams{SortBy: "id", SortDir: dto.SortDirDesc},
		},
		{
			name:   "allowed column keeps direction",
			params: dto.QueryParams{SortBy: "price", SortDir: dto.SortDirAsc},
			want:   dto.QueryParams{SortBy: "price", SortDir: dto.SortDirAsc},
		},
		{
			name:   "allowed column without direction",
			params: dto.QueryParams{SortBy: "name"},
			want:   dto.QueryParams{SortBy: "name", SortDir: dto.SortDirDesc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.WithDefaultSort("id", dto.SortDirDesc, "id", "name", "price")

			assert.Equal(t, tt.want, tt.params)
		})
	}
}

func TestFilter_GetWhereClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    dto.Filter
		wantWhere string
		wantArgs  map[string]any
	}{
		{
			name:      "equal without table",
			filter:    dto.Filter{Field: "status", Operator: dto.FilterOperatorEq, Value: "CONFIRMED"},
			wantWhere: "status = :status",
			wantArgs:  map[string]any{"status": "CONFIRMED"},
		},
		{
			name:      "not equal",
			filter:    dto.Filter{Field: "id", Operator: dto.FilterOperatorNotEq, Value: int64(9), ArgName: "exclude_id", Table: "bookings"},
			wantWhere: "bookings.id != :exclude_id",
			wantArgs:  map[string]any{"exclude_id": int64(9)},
		},
		{
			name:      "strict less than",
			filter:    dto.Filter{Field: "date_start", Operator: dto.FilterOperatorLess, Value: int64(200), ArgName: "window_end", Table: "bookings"},
			wantWhere: "bookings.date_start < :window_end",
			wantArgs:  map[string]any{"window_end": int64(200)},
		},
		{
			name:      "strict greater than",
			filter:    dto.Filter{Field: "date_end", Operator: dto.FilterOperatorGreater, Value: int64(100), ArgName: "window_start", Table: "bookings"},
			wantWhere: "bookings.date_end > :window_start",
			wantArgs:  map[string]any{"window_start": int64(100)},
		},
		{
			name:      "bounds",
			filter:    dto.Filter{Field: "capacity", Operator: dto.FilterOperatorGreaterEq, Value: 2},
			wantWhere: "capacity >= :capacity",
			wantArgs:  map[string]any{"capacity": 2},
		},
		{
			name:      "like",
			filter:    dto.Filter{Field: "guest_name", Operator: dto.FilterOperatorLike, Value: "doe"},
			wantWhere: "LOWER(guest_name) LIKE LOWER(:guest_name)",
			wantArgs:  map[string]any{"guest_name": "%doe%"},
		},
		{
			name:      "in expands one parameter per value",
			filter:    dto.Filter{Field: "status", Operator: dto.FilterOperatorIn, Value: []string{"AVAILABLE", "MAINTENANCE"}, Table: "rooms"},
			wantWhere: "rooms.status IN (:status_0, :status_1)",
			wantArgs:  map[string]any{"status_0": "AVAILABLE", "status_1": "MAINTENANCE"},
		},
		{
			name:      "not deleted",
			filter:    dto.NotDeleted("rooms"),
			wantWhere: "rooms.date_delete IS NULL",
			wantArgs:  map[string]any{},
		},
		{
			name:      "unknown operator",
			filter:    dto.Filter{Field: "id", Operator: "between"},
			wantWhere: "",
			wantArgs:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.GetWhereClause()

			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorOr,
		Filters: []any{
			dto.Filter{Field: "status", Operator: dto.FilterOperatorEq, Value: "CONFIRMED"},
			dto.FilterGroup{Filters: []any{
				dto.Filter{Field: "date_start", Operator: dto.FilterOperatorGreaterEq, Value: int64(1)},
				dto.Filter{Field: "date_end", Operator: dto.FilterOperatorLessEq, Value: int64(2)},
			}},
			"ignored",
		},
	}

	where, args := group.GetWhereClause()

	assert.Equal(t, "(status = :status OR (date_start >= :date_start AND date_end <= :date_end))", where)
	assert.Equal(t, map[string]any{"status": "CONFIRMED", "date_start": int64(1), "date_end": int64(2)}, args)
}

func TestFilterGroup_And(t *testing.T) {
	empty := dto.FilterGroup{}
	scoped := empty.And(dto.NotDeleted("rooms"))
	where, _ := scoped.GetWhereClause()
	assert.Equal(t, "(rooms.date_delete IS NULL)", where)

	byID := dto.FilterGroup{
		Filters: []any{
			dto.Filter{Field: "id", Operator: dto.FilterOperatorEq, Value: int64(7), Table: "rooms"},
		},
	}

	scoped = byID.And(dto.NotDeleted("rooms"))
	where, args := scoped.GetWhereClause()
	assert.Equal(t, "((rooms.id = :id) AND rooms.date_delete IS NULL)", where)
	assert.Equal(t, map[string]any{"id": int64(7)}, args)
}
