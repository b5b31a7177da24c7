package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx: repositories take
	// an optional DBExecutor override so services can run several repository
	// calls inside one transaction.
	DBExecutor interface {
		sqlx.ExtContext
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

// Atomic runs fn inside a transaction on db, committing on success and
// rolling back on error or panic.
func Atomic(ctx context.Context, db DB, opts *sql.TxOptions, fn func(tx DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializationFailure is the postgres SQLSTATE raised when a serializable
// transaction must be retried.
const serializationFailure = "40001"

// IsSerializationFailure reports whether err is a postgres serialization failure.
func IsSerializationFailure(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == serializationFailure
}

// RetrySerializable calls run again whenever it fails with a serialization
// failure, up to attempts times. Any other outcome is returned as is.
func RetrySerializable(attempts int, run func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = run(); !IsSerializationFailure(err) {
			return err
		}
	}
	return err
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
