package dto

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"hotel/shared/constant"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

type QueryParams struct {
	Page    int    `json:"page"     validate:"omitempty"`
	Limit   int    `json:"limit"    validate:"omitempty"`
	SortBy  string `json:"sort_by"  validate:"omitempty"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest reads paging and sorting from the query string. Values that are
// not positive integers or known directions are ignored. With withDefaults set,
// missing page and limit fall back to the package defaults. Limit is always
// capped at constant.MaxValueLimit.
func (q *QueryParams) FromRequest(r *http.Request, withDefaults bool) {
	query := r.URL.Query()

	if page, ok := positiveInt(query.Get(constant.RequestParamPage)); ok {
		q.Page = page
	}

	if limit, ok := positiveInt(query.Get(constant.RequestParamLimit)); ok {
		q.Limit = min(limit, constant.MaxValueLimit)
	}

	if sortBy := query.Get(constant.RequestParamSortBy); sortBy != "" {
		q.SortBy = sortBy
	}

	if dir := strings.ToUpper(query.Get(constant.RequestParamSortDir)); dir == SortDirAsc || dir == SortDirDesc {
		q.SortDir = dir
	}

	if !withDefaults {
		return
	}

	if q.Page == 0 {
		q.Page = constant.DefaultValuePage
	}

	if q.Limit == 0 {
		q.Limit = constant.DefaultValueLimit
	}
}

// WithDefaultSort fills SortBy/SortDir when the caller did not ask for an
// allowed column. SortBy ends up interpolated into ORDER BY, so only columns
// in allowed survive.
func (q *QueryParams) WithDefaultSort(sortBy, sortDir string, allowed ...string) {
	if !slices.Contains(allowed, q.SortBy) {
		q.SortBy = sortBy
		q.SortDir = sortDir
	}

	if q.SortDir == "" {
		q.SortDir = sortDir
	}
}

func positiveInt(raw string) (int, bool) {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, false
	}

	return value, true
}
