package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// withTx returns a context carrying tx
func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// BaseRepository provides common functionality for all SQLite repositories
type BaseRepository[T any] struct {
	db     *sql.DB
	table  string
	entity string
	logger *logrus.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository[T any](db *sql.DB, table, entity string, logger *logrus.Logger) *BaseRepository[T] {
	if logger == nil {
		logger = logrus.New()
	}
	return &BaseRepository[T]{
		db:     db,
		table:  table,
		entity: entity,
		logger: logger,
	}
}

// conn returns the transaction carried by ctx, or the pool
func (r *BaseRepository[T]) conn(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Count returns the total number of rows in the table
func (r *BaseRepository[T]) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)

	var count int64
	if err := r.executeQueryRow(ctx, "count", query).Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", r.entity, "", err)
	}
	return count, nil
}

// exists checks if a row with the given ID exists
func (r *BaseRepository[T]) exists(ctx context.Context, op string, id int64) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", r.table)

	var found int
	err := r.executeQueryRow(ctx, op, query, id).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return repositories.NotFoundError(r.entity, formatID(id))
		}
		return repositories.NewRepositoryError(op, r.entity, formatID(id), err)
	}
	return nil
}

// deleteByID removes a row by ID
func (r *BaseRepository[T]) deleteByID(ctx context.Context, id int64) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.table)
	result, err := r.executeExec(ctx, "delete", query, id)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "delete", formatID(id))
}

// pageClause renders LIMIT/OFFSET for the options
func pageClause(opts repositories.ListOptions) (string, []interface{}) {
	if opts.Limit <= 0 {
		if opts.Offset > 0 {
			return " LIMIT -1 OFFSET ?", []interface{}{opts.Offset}
		}
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []interface{}{opts.Limit, opts.Offset}
}

// logQuery logs a query with its execution time
func (r *BaseRepository[T]) logQuery(operation string, query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"table":     r.table,
		"query":     strings.Join(strings.Fields(query), " "),
		"args":      args,
		"duration":  duration,
	}

	if err != nil {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Query failed")
	} else {
		r.logger.WithFields(fields).Debug("Query executed")
	}
}

// executeQuery executes a query and logs the result
func (r *BaseRepository[T]) executeQuery(ctx context.Context, operation, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	duration := time.Since(start)

	r.logQuery(operation, query, args, duration, err)

	if err != nil {
		return nil, repositories.NewRepositoryError(operation, r.entity, "", err)
	}

	return rows, nil
}

// executeQueryRow executes a single-row query and logs the result
func (r *BaseRepository[T]) executeQueryRow(ctx context.Context, operation, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.conn(ctx).QueryRowContext(ctx, query, args...)
	duration := time.Since(start)

	r.logQuery(operation, query, args, duration, nil)

	return row
}

// executeExec executes a non-query statement and logs the result
func (r *BaseRepository[T]) executeExec(ctx context.Context, operation, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	duration := time.Since(start)

	r.logQuery(operation, query, args, duration, err)

	if err != nil {
		return nil, classify(operation, r.entity, err)
	}

	return result, nil
}

// checkRowsAffected checks if the expected number of rows were affected
func (r *BaseRepository[T]) checkRowsAffected(result sql.Result, operation, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError(operation, r.entity, id, err)
	}

	if rowsAffected == 0 {
		return repositories.NotFoundError(r.entity, id)
	}

	return nil
}

// validateID validates that an ID is positive
func (r *BaseRepository[T]) validateID(id int64) error {
	if id <= 0 {
		return repositories.NewRepositoryError("validate", r.entity, formatID(id), repositories.ErrInvalidID)
	}
	return nil
}

// classify maps driver errors onto repository sentinels. Both drivers report
// constraint failures with the SQLite message text.
func classify(op, entity string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return repositories.NewRepositoryErrorWithMessage(op, entity, "", msg, repositories.ErrDuplicateEntry)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return repositories.ConstraintError(entity, "foreign key", err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return repositories.ConstraintError(entity, "check", err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return repositories.NewRepositoryErrorWithMessage(op, entity, "", msg, repositories.ErrTimeout)
	}
	return repositories.NewRepositoryError(op, entity, "", err)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
