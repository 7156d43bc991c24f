package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq        = "eq"
	FilterOperatorLike      = "like"
	FilterOperatorIn        = "in"
	FilterOperatorNotEq     = "not_eq"
	FilterOperatorLess      = "less"
	FilterOperatorGreater   = "greater"
	FilterOperatorLessEq    = "less_eq"
	FilterOperatorGreaterEq = "greater_eq"
	FilterPlainQuery        = "plan"
	FilterIsNotNull         = "is_not_null"
	FilterIsNull            = "is_null"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

//nolint:gochecknoglobals
var comparisons = map[string]string{
	FilterOperatorEq:        "=",
	FilterOperatorNotEq:     "!=",
	FilterOperatorLess:      "<",
	FilterOperatorGreater:   ">",
	FilterOperatorLessEq:    "<=",
	FilterOperatorGreaterEq: ">=",
}

// Filter is one predicate rendered with sqlx named parameters. ArgName
// defaults to Field; set it when the same column appears twice in a query.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string `validate:"required,oneof=eq like in not_eq less greater less_eq greater_eq"`
	Table    string
}

func (f *Filter) column() string {
	if f.Table == "" {
		return f.Field
	}

	return f.Table + "." + f.Field
}

func (f *Filter) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	column := f.column()

	argName := f.ArgName
	if argName == "" {
		argName = f.Field
	}

	if symbol, ok := comparisons[f.Operator]; ok {
		args[argName] = f.Value

		return fmt.Sprintf("%s %s :%s", column, symbol, argName), args
	}

	switch f.Operator {
	case FilterOperatorLike:
		args[argName] = fmt.Sprintf("%%%v%%", f.Value)

		return fmt.Sprintf("LOWER(%s) LIKE LOWER(:%s)", column, argName), args
	case FilterOperatorIn:
		values := reflect.ValueOf(f.Value)
		if values.Kind() != reflect.Slice && values.Kind() != reflect.Array {
			return fmt.Sprintf("%s IN (%v)", column, f.Value), args
		}

		placeholders := make([]string, values.Len())

		for idx := range values.Len() {
			name := fmt.Sprintf("%s_%d", argName, idx)
			args[name] = values.Index(idx).Interface()
			placeholders[idx] = ":" + name
		}

		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
	case FilterPlainQuery:
		query, _ := f.Value.(string)

		return "(" + query + ")", args
	case FilterIsNotNull:
		return column + " IS NOT NULL", args
	case FilterIsNull:
		return column + " IS NULL", args
	default:
		return "", args
	}
}

// FilterGroup joins Filters and nested FilterGroups with Operator, AND when
// unset.
type FilterGroup struct {
	Filters  []any
	Operator string
}

// And returns a new group requiring both the receiver and every given filter.
// An empty receiver is dropped instead of producing "()".
func (f FilterGroup) And(filters ...any) FilterGroup {
	group := FilterGroup{Operator: FilterGroupOperatorAnd}

	if len(f.Filters) > 0 {
		group.Filters = append(group.Filters, f)
	}

	group.Filters = append(group.Filters, filters...)

	return group
}

// NotDeleted is the single predicate that hides soft-deleted rows.
func NotDeleted(table string) Filter {
	return Filter{
		Field:    "date_delete",
		Operator: FilterIsNull,
		Table:    table,
	}
}

func (f *FilterGroup) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	clauses := make([]string, 0, len(f.Filters))

	for _, filter := range f.Filters {
		var (
			clause string
			params map[string]any
		)

		switch typed := filter.(type) {
		case Filter:
			clause, params = typed.GetWhereClause()
		case FilterGroup:
			clause, params = typed.GetWhereClause()
		default:
			continue
		}

		if clause == "" {
			continue
		}

		clauses = append(clauses, clause)
		maps.Copy(args, params)
	}

	if len(clauses) == 0 {
		return "", args
	}

	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return "(" + strings.Join(clauses, " "+operator+" ") + ")", args
}
