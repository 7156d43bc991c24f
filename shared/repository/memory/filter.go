package memory

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"hotel/shared/dto"

	"github.com/shopspring/decimal"
)

func (t *Table[T]) matches(row T, group dto.FilterGroup) bool {
	value := reflect.ValueOf(row)

	return t.matchGroup(value, group)
}

func (t *Table[T]) matchGroup(row reflect.Value, group dto.FilterGroup) bool {
	if len(group.Filters) == 0 {
		return true
	}

	or := group.Operator == dto.FilterGroupOperatorOr

	for _, item := range group.Filters {
		var ok bool

		switch filter := item.(type) {
		case dto.Filter:
			ok = t.matchFilter(row, filter)
		case dto.FilterGroup:
			ok = t.matchGroup(row, filter)
		default:
			continue
		}

		if or && ok {
			return true
		}

		if !or && !ok {
			return false
		}
	}

	return !or
}

func (t *Table[T]) matchFilter(row reflect.Value, filter dto.Filter) bool {
	index, ok := t.fields[filter.Field]
	if !ok {
		return false
	}

	actual := normalize(row.FieldByIndex(index).Interface())

	switch filter.Operator {
	case dto.FilterIsNull:
		return actual == nil
	case dto.FilterIsNotNull:
		return actual != nil
	case dto.FilterOperatorEq:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c == 0
	case dto.FilterOperatorNotEq:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c != 0
	case dto.FilterOperatorLess:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c < 0
	case dto.FilterOperatorLessEq:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c <= 0
	case dto.FilterOperatorGreater:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c > 0
	case dto.FilterOperatorGreaterEq:
		c, ok := compare(actual, normalize(filter.Value))

		return ok && c >= 0
	case dto.FilterOperatorLike:
		return strings.Contains(strings.ToLower(fmt.Sprint(actual)), strings.ToLower(fmt.Sprint(filter.Value)))
	case dto.FilterOperatorIn:
		values := reflect.ValueOf(filter.Value)
		if values.Kind() != reflect.Slice && values.Kind() != reflect.Array {
			return false
		}

		for i := range values.Len() {
			if c, ok := compare(actual, normalize(values.Index(i).Interface())); ok && c == 0 {
				return true
			}
		}

		return false
	default:
		return false
	}
}

// normalize collapses pointers and sized numeric kinds so column values and
// filter arguments compare the way the database would.
func normalize(value any) any {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()) //nolint:gosec
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return rv.Interface()
	}
}

func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, a == nil && b == nil
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), true
		case int64:
			return cmp.Compare(x, float64(y)), true
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y), true
		}
	}

	return 0, false
}
