package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Store methods take the narrowest of these they need so the same call
// works on the pool or inside a transaction.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

var (
	_ DB     = (*sqlx.DB)(nil)
	_ Execer = (*sqlx.Tx)(nil)
	_ Getter = (*sqlx.Tx)(nil)
)
