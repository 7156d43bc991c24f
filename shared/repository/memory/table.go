package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"hotel/shared"
	"hotel/shared/constant"
	"hotel/shared/dto"

	"github.com/jmoiron/sqlx"
)

var (
	errRequiredFilter = errors.New("required filter")
	errEmptyUpdate    = errors.New("nothing to update")
)

// Table holds rows of T keyed by their primary column and implements the
// same method set as repository.Repository[T].
type Table[T any] struct {
	mu         sync.RWMutex
	name       string
	primary    string
	fields     map[string][]int
	softDelete bool
	rows       map[int64]T
	nextID     int64
	locks      map[int64]chan struct{}
	join       func(T) T
}

func NewTable[T any](name, primary string) *Table[T] {
	var zero T

	fields := map[string][]int{}
	collectFields(reflect.TypeOf(zero), nil, fields)

	if _, ok := fields[primary]; !ok {
		panic(fmt.Sprintf("memory: %s has no %q column", name, primary))
	}

	_, softDelete := fields[constant.FieldDateDelete]

	return &Table[T]{
		name:       name,
		primary:    primary,
		fields:     fields,
		softDelete: softDelete,
		rows:       map[int64]T{},
		locks:      map[int64]chan struct{}{},
	}
}

// WithJoin enriches every row returned by a read, standing in for GetJoinQuery.
func (t *Table[T]) WithJoin(fn func(T) T) *Table[T] {
	t.join = fn

	return t
}

func collectFields(typ reflect.Type, parent []int, fields map[string][]int) {
	for i := range typ.NumField() {
		field := typ.Field(i)
		index := append(slices.Clone(parent), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, fields)

			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}

		fields[tag] = index
	}
}

func (t *Table[T]) idOf(row T) int64 {
	value := reflect.ValueOf(row).FieldByIndex(t.fields[t.primary])

	id, _ := normalize(value.Interface()).(int64)

	return id
}

func (t *Table[T]) live(filter dto.FilterGroup) dto.FilterGroup {
	if !t.softDelete {
		return filter
	}

	return filter.And(dto.NotDeleted(t.name))
}

func (t *Table[T]) read(row T) T {
	if t.join != nil {
		return t.join(row)
	}

	return row
}

// snapshot returns matching rows ordered by primary key.
func (t *Table[T]) snapshot(filter dto.FilterGroup) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	scoped := t.live(filter)
	result := []T{}

	for _, id := range slices.Sorted(maps.Keys(t.rows)) {
		row := t.read(t.rows[id])
		if t.matches(row, scoped) {
			result = append(result, row)
		}
	}

	return result
}

func (t *Table[T]) put(ctx context.Context, id int64, row T) {
	t.mu.Lock()
	previous, existed := t.rows[id]
	t.rows[id] = row
	t.mu.Unlock()

	if state := stateFrom(ctx); state != nil {
		state.onRollback(func() {
			t.mu.Lock()
			defer t.mu.Unlock()

			if existed {
				t.rows[id] = previous
			} else {
				delete(t.rows, id)
			}
		})
	}
}

func (t *Table[T]) lock(ctx context.Context, id int64) error {
	state := stateFrom(ctx)
	if state == nil {
		return nil
	}

	key := lockKey{table: t, id: id}
	if state.holds(key) {
		return nil
	}

	t.mu.Lock()
	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	t.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to lock %s row %d: %w", t.name, id, ctx.Err())
	}

	state.acquired(key, func() { <-ch })

	return nil
}

func (t *Table[T]) Insert(ctx context.Context, model T) (int64, error) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	value := reflect.ValueOf(&model).Elem().FieldByIndex(t.fields[t.primary])
	value.SetInt(id)

	t.put(ctx, id, model)

	return id, nil
}

func (t *Table[T]) InsertTx(ctx context.Context, _ *sqlx.Tx, model T) (int64, error) {
	return t.Insert(ctx, model)
}

func (t *Table[T]) Exist(_ context.Context, filter dto.FilterGroup) (bool, error) {
	if len(filter.Filters) == 0 {
		return false, errRequiredFilter
	}

	return len(t.snapshot(filter)) > 0, nil
}

func (t *Table[T]) Get(_ context.Context, filter dto.FilterGroup, _ ...string) (T, error) {
	var zero T

	rows := t.snapshot(filter)
	if len(rows) == 0 {
		return zero, nil
	}

	return rows[0], nil
}

func (t *Table[T]) GetTx(ctx context.Context, _ *sqlx.Tx, filter dto.FilterGroup, columns ...string) (T, error) {
	return t.Get(ctx, filter, columns...)
}

// GetForUpdateTx blocks until the matched row is free, then re-checks the
// filter against the latest version of the row the way postgres does.
func (t *Table[T]) GetForUpdateTx(ctx context.Context, _ *sqlx.Tx, filter dto.FilterGroup, _ ...string) (T, error) {
	var zero T

	rows := t.snapshot(filter)
	if len(rows) == 0 {
		return zero, nil
	}

	id := t.idOf(rows[0])
	if err := t.lock(ctx, id); err != nil {
		return zero, err
	}

	t.mu.RLock()
	row, ok := t.rows[id]
	t.mu.RUnlock()

	if !ok {
		return zero, nil
	}

	row = t.read(row)
	if !t.matches(row, t.live(filter)) {
		return zero, nil
	}

	return row, nil
}

func (t *Table[T]) GetAll(_ context.Context, params dto.QueryParams, filter dto.FilterGroup, _ ...string) ([]T, error) {
	rows := t.snapshot(filter)

	if index, ok := t.fields[params.SortBy]; ok {
		desc := strings.ToUpper(params.SortDir) != dto.SortDirAsc

		slices.SortStableFunc(rows, func(a, b T) int {
			c, _ := compare(
				normalize(reflect.ValueOf(a).FieldByIndex(index).Interface()),
				normalize(reflect.ValueOf(b).FieldByIndex(index).Interface()),
			)
			if desc {
				return -c
			}

			return c
		})
	}

	if params.Limit > 0 {
		offset := 0
		if params.Page > 0 {
			offset = (params.Page - 1) * params.Limit
		}

		if offset >= len(rows) {
			return []T{}, nil
		}

		rows = rows[offset:min(offset+params.Limit, len(rows))]
	}

	return rows, nil
}

func (t *Table[T]) GetAllTx(ctx context.Context, _ *sqlx.Tx, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	return t.GetAll(ctx, params, filter, columns...)
}

func (t *Table[T]) Count(_ context.Context, filter dto.FilterGroup) (int, error) {
	return len(t.snapshot(filter)), nil
}

func (t *Table[T]) CountTx(ctx context.Context, _ *sqlx.Tx, filter dto.FilterGroup) (int, error) {
	return t.Count(ctx, filter)
}

func (t *Table[T]) Update(ctx context.Context, mod map[string]any, filter dto.FilterGroup) error {
	if len(mod) == 0 {
		return errEmptyUpdate
	}

	if len(filter.Filters) == 0 {
		return errRequiredFilter
	}

	for _, row := range t.snapshot(filter) {
		t.mu.RLock()
		stored := t.rows[t.idOf(row)]
		t.mu.RUnlock()

		value := reflect.ValueOf(&stored).Elem()

		for column, newValue := range mod {
			index, ok := t.fields[column]
			if !ok {
				return fmt.Errorf("failed to update data (%s): unknown column %q", t.name, column)
			}

			if err := assign(value.FieldByIndex(index), newValue); err != nil {
				return fmt.Errorf("failed to update data (%s): column %q: %w", t.name, column, err)
			}
		}

		t.put(ctx, t.idOf(stored), stored)
	}

	return nil
}

func (t *Table[T]) UpdateTx(ctx context.Context, _ *sqlx.Tx, mod map[string]any, filter dto.FilterGroup) error {
	return t.Update(ctx, mod, filter)
}

func (t *Table[T]) SoftDelete(ctx context.Context, username string, filter dto.FilterGroup) error {
	return t.Update(ctx, shared.SoftDeleteFields(username), filter)
}

func (t *Table[T]) SoftDeleteTx(ctx context.Context, _ *sqlx.Tx, username string, filter dto.FilterGroup) error {
	return t.SoftDelete(ctx, username, filter)
}

// Raw returns the stored row, soft deleted or not.
func (t *Table[T]) Raw(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]

	return row, ok
}

// All returns every stored row, including soft deleted ones, by primary key.
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]T, 0, len(t.rows))
	for _, id := range slices.Sorted(maps.Keys(t.rows)) {
		result = append(result, t.rows[id])
	}

	return result
}

func assign(field reflect.Value, newValue any) error {
	if newValue == nil {
		field.Set(reflect.Zero(field.Type()))

		return nil
	}

	value := reflect.ValueOf(newValue)

	if field.Kind() == reflect.Pointer && value.Type() != field.Type() {
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), newValue); err != nil {
			return err
		}

		field.Set(ptr)

		return nil
	}

	switch {
	case value.Type().AssignableTo(field.Type()):
		field.Set(value)
	case value.Type().ConvertibleTo(field.Type()):
		field.Set(value.Convert(field.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", value.Type(), field.Type())
	}

	return nil
}
