package store

import (
	"context"
	"database/sql"
)

type (
	getFunc  func(ctx context.Context, dest any, query string, args ...any) error
	execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)
)

func (f getFunc) call(ctx context.Context, dest any, query string, args []any) error {
	if f == nil {
		return nil
	}
	return f(ctx, dest, query, args...)
}

func (f execFunc) call(ctx context.Context, query string, args []any) (sql.Result, error) {
	if f == nil {
		return stubResult{}, nil
	}
	return f(ctx, query, args...)
}

// stubDB stands in for the pool. Unset hooks succeed without touching dest.
type stubDB struct {
	getFn    getFunc
	selectFn getFunc
	execFn   execFunc
}

func (s stubDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.getFn.call(ctx, dest, query, args)
}

func (s stubDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.selectFn.call(ctx, dest, query, args)
}

func (s stubDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.execFn.call(ctx, query, args)
}

type stubExecer struct {
	execFn execFunc
}

func (s stubExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.execFn.call(ctx, query, args)
}

type stubGetter struct {
	getFn getFunc
}

func (s stubGetter) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.getFn.call(ctx, dest, query, args)
}

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) {
	return 0, r.err
}

func (r stubResult) RowsAffected() (int64, error) {
	return r.rows, r.err
}
