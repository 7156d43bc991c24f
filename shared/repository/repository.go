package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/shared"
	"hotel/shared/constant"
	"hotel/shared/dto"
	"hotel/shared/logger"

	"github.com/jmoiron/sqlx"
)

const updateArgPrefix = "set_"

var (
	errRequiredFilter = errors.New("required filter")
	errEmptyUpdate    = errors.New("nothing to update")
)

type column struct {
	name  string
	table string
	alias string
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type Repository[T any] struct {
	db            *postgres.Connection
	otel          otel.Otel
	table         string
	entitas       string
	primaryColumn string
	columns       []column
	join          string
	softDelete    bool
	InsertColumns []string
}

func NewRepository[T any](entitasName, tableName, primaryColumn string, dbConnection *postgres.Connection, otl otel.Otel) Repository[T] {
	var zero T

	reflectType := reflect.TypeOf(zero)
	columns, insertColumns := getColumns(tableName, reflectType)

	valueOf := reflect.ValueOf(zero)
	method := valueOf.MethodByName("GetJoinQuery")
	joinQueryStr := ""

	if method.IsValid() {
		joinQuery := method.Call([]reflect.Value{})

		if len(joinQuery) > 0 {
			joinQueryStr = joinQuery[0].String()
		}
	}

	softDelete := slices.ContainsFunc(columns, func(col column) bool {
		return col.table == tableName && col.name == constant.FieldDateDelete
	})

	return Repository[T]{
		db:            dbConnection,
		otel:          otl,
		table:         tableName,
		entitas:       entitasName,
		primaryColumn: primaryColumn,
		columns:       columns,
		join:          joinQueryStr,
		softDelete:    softDelete,
		InsertColumns: slices.DeleteFunc(insertColumns, func(col string) bool { return col == primaryColumn }),
	}
}

func (repo *Repository[T]) span(ctx context.Context, operation string) (context.Context, otel.Scope) {
	return repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+repo.entitas+"."+operation)
}

// prepared runs fn against a named statement for query, closing it afterwards.
// Failures are logged with their stack and traced on scope.
func (repo *Repository[T]) prepared(ctx context.Context, exec queryer, scope otel.Scope, action, query string, fn func(*sqlx.NamedStmt) error) error {
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	stmt, err := exec.PrepareNamedContext(ctx, query)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to prepare statement (%s): %w", repo.entitas, err)
	}
	defer stmt.Close()

	if err = fn(stmt); err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to %s (%s): %w", action, repo.entitas, err)
	}

	return nil
}

func (repo *Repository[T]) reader(sqltx *sqlx.Tx) queryer {
	if sqltx != nil {
		return sqltx
	}

	return repo.db.Read
}

func (repo *Repository[T]) writer(sqltx *sqlx.Tx) queryer {
	if sqltx != nil {
		return sqltx
	}

	return repo.db.Write
}

// live scopes a filter to rows that are not soft deleted.
func (repo *Repository[T]) live(filter dto.FilterGroup) dto.FilterGroup {
	if !repo.softDelete {
		return filter
	}

	return filter.And(dto.NotDeleted(repo.table))
}

func (repo *Repository[T]) insert(ctx context.Context, exec queryer, model T) (int64, error) {
	ctx, scope := repo.span(ctx, "insert")
	defer scope.End()

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s) RETURNING %s",
		repo.table, strings.Join(repo.InsertColumns, ", "), strings.Join(repo.InsertColumns, ", :"), repo.primaryColumn)

	var id int64

	err := repo.prepared(ctx, exec, scope, "insert data", query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &id, model)
	})

	return id, err
}

func (repo *Repository[T]) Insert(ctx context.Context, model T) (int64, error) {
	ctx, scope := repo.span(ctx, "Insert")
	defer scope.End()

	return repo.insert(ctx, repo.db.Write, model) //nolint:wrapcheck
}

func (repo *Repository[T]) InsertTx(ctx context.Context, sqltx *sqlx.Tx, model T) (int64, error) {
	ctx, scope := repo.span(ctx, "InsertTx")
	defer scope.End()

	return repo.insert(ctx, repo.writer(sqltx), model) //nolint:wrapcheck
}

func (repo *Repository[T]) Exist(ctx context.Context, filter dto.FilterGroup) (bool, error) {
	ctx, scope := repo.span(ctx, "Exist")
	defer scope.End()

	if len(filter.Filters) == 0 {
		return false, errRequiredFilter
	}

	where, args := repo.BuildWhereClause(ctx, repo.live(filter))

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s %s)", repo.table, where)

	var exist bool

	err := repo.prepared(ctx, repo.db.Read, scope, "check exist data", query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &exist, args)
	})

	return exist, err
}

func (repo *Repository[T]) get(ctx context.Context, exec queryer, lock bool, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.span(ctx, "get")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, repo.live(filter))
	selectQuery := repo.getSelectQuery(ctx, columns...)

	var locking string
	if lock {
		locking = "FOR UPDATE OF " + repo.table
	}

	query := fmt.Sprintf("SELECT %s FROM %s %s %s %s", selectQuery, repo.table, repo.join, where, locking)

	var model T

	err := repo.prepared(ctx, exec, scope, "get data", query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &model, args)
	})

	return model, err
}

// Get returns the zero value when no live row matches.
func (repo *Repository[T]) Get(ctx context.Context, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.span(ctx, "Get")
	defer scope.End()

	return repo.get(ctx, repo.db.Read, false, filter, columns...) //nolint:wrapcheck
}

func (repo *Repository[T]) GetTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.span(ctx, "GetTx")
	defer scope.End()

	return repo.get(ctx, repo.reader(sqltx), false, filter, columns...) //nolint:wrapcheck
}

// GetForUpdateTx reads the row and holds its lock until the transaction ends.
func (repo *Repository[T]) GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.span(ctx, "GetForUpdateTx")
	defer scope.End()

	return repo.get(ctx, repo.writer(sqltx), true, filter, columns...) //nolint:wrapcheck
}

func (repo *Repository[T]) getAll(ctx context.Context, exec queryer, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.span(ctx, "getAll")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, repo.live(filter))
	selectQuery := repo.getSelectQuery(ctx, columns...)

	var pagination string

	if params.Limit > 0 {
		args["limit"] = params.Limit
		pagination = "LIMIT :limit"

		if params.Page > 0 {
			args["offset"] = (params.Page - 1) * params.Limit
			pagination += " OFFSET :offset"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s %s %s %s %s", selectQuery, repo.table, repo.join, where, repo.orderBy(params), pagination)

	models := []T{}

	err := repo.prepared(ctx, exec, scope, "get all data", query, func(stmt *sqlx.NamedStmt) error {
		return stmt.SelectContext(ctx, &models, args)
	})

	return models, err
}

func (repo *Repository[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.span(ctx, "GetAll")
	defer scope.End()

	return repo.getAll(ctx, repo.db.Read, params, filter, columns...) //nolint:wrapcheck
}

func (repo *Repository[T]) GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.span(ctx, "GetAllTx")
	defer scope.End()

	return repo.getAll(ctx, repo.reader(sqltx), params, filter, columns...) //nolint:wrapcheck
}

func (repo *Repository[T]) count(ctx context.Context, exec queryer, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.span(ctx, "count")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, repo.live(filter))

	query := fmt.Sprintf("SELECT COUNT(%s.%s) FROM %s %s %s", repo.table, repo.primaryColumn, repo.table, repo.join, where)

	var count int

	err := repo.prepared(ctx, exec, scope, "count data", query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &count, args)
	})

	return count, err
}

func (repo *Repository[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.span(ctx, "Count")
	defer scope.End()

	return repo.count(ctx, repo.db.Read, filter) //nolint:wrapcheck
}

func (repo *Repository[T]) CountTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.span(ctx, "CountTx")
	defer scope.End()

	return repo.count(ctx, repo.reader(sqltx), filter) //nolint:wrapcheck
}

func (repo *Repository[T]) update(ctx context.Context, exec queryer, mod map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.span(ctx, "update")
	defer scope.End()

	if len(mod) == 0 {
		return errEmptyUpdate
	}

	if len(filter.Filters) == 0 {
		return errRequiredFilter
	}

	where, args := repo.BuildWhereClause(ctx, repo.live(filter))

	updateField := []string{}

	for _, col := range slices.Sorted(maps.Keys(mod)) {
		updateField = append(updateField, fmt.Sprintf("%s = :%s%s", col, updateArgPrefix, col))
		args[updateArgPrefix+col] = mod[col]
	}

	query := fmt.Sprintf("UPDATE %s SET %s %s", repo.table, strings.Join(updateField, ", "), where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err := exec.NamedExecContext(ctx, query, args)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to update data (%s): %w", repo.entitas, err)
	}

	return nil
}

func (repo *Repository[T]) Update(ctx context.Context, mod map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.span(ctx, "Update")
	defer scope.End()

	return repo.update(ctx, repo.db.Write, mod, filter) //nolint:wrapcheck
}

func (repo *Repository[T]) UpdateTx(ctx context.Context, sqltx *sqlx.Tx, mod map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.span(ctx, "UpdateTx")
	defer scope.End()

	return repo.update(ctx, repo.writer(sqltx), mod, filter) //nolint:wrapcheck
}

// SoftDelete tombstones the matching live rows; they disappear from every
// subsequent read of this repository.
func (repo *Repository[T]) SoftDelete(ctx context.Context, username string, filter dto.FilterGroup) error {
	ctx, scope := repo.span(ctx, "SoftDelete")
	defer scope.End()

	return repo.update(ctx, repo.db.Write, shared.SoftDeleteFields(username), filter) //nolint:wrapcheck
}

func (repo *Repository[T]) SoftDeleteTx(ctx context.Context, sqltx *sqlx.Tx, username string, filter dto.FilterGroup) error {
	ctx, scope := repo.span(ctx, "SoftDeleteTx")
	defer scope.End()

	return repo.update(ctx, repo.writer(sqltx), shared.SoftDeleteFields(username), filter) //nolint:wrapcheck
}

// orderBy only accepts columns the model actually selects.
func (repo *Repository[T]) orderBy(params dto.QueryParams) string {
	if params.SortBy == "" {
		return ""
	}

	dir := strings.ToUpper(params.SortDir)
	if dir != dto.SortDirAsc && dir != dto.SortDirDesc {
		dir = dto.SortDirDesc
	}

	for _, col := range repo.columns {
		if col.alias == params.SortBy || (col.alias == "" && col.name == params.SortBy) {
			return fmt.Sprintf("ORDER BY %s.%s %s", col.table, col.name, dir)
		}
	}

	return ""
}

func (repo *Repository[T]) getSelectQuery(ctx context.Context, columnsParam ...string) string {
	_, scope := repo.span(ctx, "getSelectQuery")
	defer scope.End()

	columns := []string{}
	for _, col := range repo.columns {
		if len(columnsParam) > 0 && !slices.Contains(columnsParam, col.name) && !slices.Contains(columnsParam, col.alias) {
			continue
		}

		var column string
		if col.alias != "" {
			column = fmt.Sprintf("%s.%s AS %s", col.table, col.name, col.alias)
		} else {
			column = fmt.Sprintf("%s.%s", col.table, col.name)
		}

		columns = append(columns, column)
	}

	return strings.Join(columns, ", ")
}

func (repo *Repository[T]) BuildWhereClause(ctx context.Context, filter dto.FilterGroup) (string, map[string]any) {
	_, scope := repo.span(ctx, "BuildWhereClause")
	defer scope.End()

	where, args := filter.GetWhereClause()

	if where == "" {
		return where, map[string]any{}
	}

	return fmt.Sprintf(" WHERE %s ", where), args
}

func getColumns(table string, reflectType reflect.Type) (columns []column, insertColumns []string) {
	for i := range reflectType.NumField() {
		field := reflectType.Field(i)
		dbTag := field.Tag.Get("db")
		tableField := field.Tag.Get("table")
		colTag := field.Tag.Get("column")

		if tableField == "" {
			tableField = table
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			col, insertCol := getColumns(table, field.Type)
			columns = append(columns, col...)
			insertColumns = append(insertColumns, insertCol...)
		}

		if dbTag == "" || dbTag == "-" {
			continue
		}

		if tableField == table {
			insertColumns = append(insertColumns, dbTag)
		}

		if colTag == "" {
			columns = append(columns, column{name: dbTag, table: tableField})
		} else {
			columns = append(columns, column{name: colTag, table: tableField, alias: dbTag})
		}
	}

	return columns, insertColumns
}
