package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"hotel/shared/cache"
	"hotel/shared/constant"
	"hotel/shared/dto"
	"hotel/shared/timezone"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const cacheKeySeparator = ":"

// ConvertStringToInt64 parses identifiers and unix timestamps coming from
// path and query parameters.
func ConvertStringToInt64(value string) (int64, error) {
	intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to convert string to int64: %w", err)
	}

	return intValue, nil
}

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

// TransformFields converts the non-zero fields of a struct into a map of updated
// columns keyed by their db tag. Non-nil pointers are dereferenced so an explicit
// zero (e.g. capacity 0 or is_published false) is still written.
func TransformFields(data interface{}, username string) map[string]any {
	val := reflect.Indirect(reflect.ValueOf(data))
	typ := val.Type()

	updatedFields := make(map[string]any)

	for index := range val.NumField() {
		field := val.Field(index)
		if field.IsZero() {
			continue
		}

		fieldName := typ.Field(index).Tag.Get("db")
		if fieldName == "" || fieldName == "-" {
			continue
		}

		if field.Kind() == reflect.Pointer {
			field = field.Elem()
		}

		updatedFields[fieldName] = field.Interface()
	}

	updatedFields[constant.FieldDateEdit] = timezone.Now().Unix()
	updatedFields[constant.FieldModifiedBy] = username

	return updatedFields
}

// SoftDeleteFields is the update that tombstones a row.
func SoftDeleteFields(username string) map[string]any {
	now := timezone.Now().Unix()

	return map[string]any{
		constant.FieldDateDelete: now,
		constant.FieldDateEdit:   now,
		constant.FieldModifiedBy: username,
	}
}

func FilterByID(id any, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// BuildCacheKey joins a prefix and its parts into "prefix:part1:part2".
func BuildCacheKey(prefix string, parts ...any) string {
	keys := make([]string, 0, len(parts)+1)
	keys = append(keys, prefix)

	for _, part := range parts {
		keys = append(keys, fmt.Sprint(part))
	}

	return strings.Join(keys, cacheKeySeparator)
}

// BuildCacheKeyWithQuery derives a stable key for a list query from its paging and filters.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	where, args := filter.GetWhereClause()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to marshal cache key args")
	}

	return BuildCacheKey(prefix, params.Page, params.Limit, params.SortBy, params.SortDir, where, string(argsJSON))
}

// InvalidateCaches removes every key under each of the given prefixes. A
// failing prefix is logged and does not stop the others.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefixes ...string) {
	for _, prefix := range prefixes {
		if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
			log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
		}
	}
}

// IsPqViolation reports whether err wraps a postgres error with the given
// SQLSTATE code (see constant.PqErrorCode*).
func IsPqViolation(err error, code string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return string(pqErr.Code) == code
}
