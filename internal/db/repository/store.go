package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the arena ledger and match registry on Postgres. The
// pairing and settlement operations run inside transactions so their
// multi-row mutations commit as one unit or not at all.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
