package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var (
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns tx when the caller is inside a transaction, db otherwise.
func conn(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pqErr.Constraint)
		}
	}
	return err
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) Transactor {
	return &transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back on error or panic.
func (t *transactor) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
