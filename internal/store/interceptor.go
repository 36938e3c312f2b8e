package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// QueryInterceptor wraps the database handle, or a transaction opened by
// InTx, and debug-logs every statement with its duration.
type QueryInterceptor struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *zap.SugaredLogger
}

func NewQueryInterceptor(db *sql.DB) QueryInterceptor {
	return QueryInterceptor{db: db, logger: zap.S().Named("store")}
}

// InTx runs fn against a transaction and commits it when fn succeeds. Called
// on an interceptor already bound to a transaction, fn joins it.
func (q QueryInterceptor) InTx(ctx context.Context, fn func(q QueryInterceptor) error) error {
	if q.tx != nil {
		return fn(q)
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(QueryInterceptor{db: q.db, tx: tx, logger: q.logger}); err != nil {
		return err
	}
	return tx.Commit()
}

func (q QueryInterceptor) conn() querier {
	if q.tx != nil {
		return q.tx
	}
	return q.db
}

func (q QueryInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer q.log(time.Now(), query, args)
	return q.conn().QueryRowContext(ctx, query, args...)
}

func (q QueryInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer q.log(time.Now(), query, args)
	return q.conn().QueryContext(ctx, query, args...)
}

func (q QueryInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer q.log(time.Now(), query, args)
	return q.conn().ExecContext(ctx, query, args...)
}

func (q QueryInterceptor) log(start time.Time, query string, args []any) {
	q.logger.Debugw("query", "sql", query, "args", args, "duration", time.Since(start), "tx", q.tx != nil)
}
