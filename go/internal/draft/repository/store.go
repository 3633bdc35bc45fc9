package repository

import (
	"context"
	"database/sql"
)

// Store provides PostgreSQL-backed persistence for the draft core.
//
// Read methods run against the pool directly. Every multi-step mutation
// (completing a pick, undoing one, executing a trade swap, regenerating the
// order) runs inside a single transaction together with its activity-log and
// outbox rows, so observers never see a partially applied change.
type Store struct {
	db *sql.DB
	q  *queries
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
		q:  &queries{db: db},
	}
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries binds the hand-written SQL to either the pool or a transaction.
type queries struct {
	db dbtx
}

func newQueries(tx *sql.Tx) *queries {
	return &queries{db: tx}
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
