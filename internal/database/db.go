package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/animechat/server/internal/apperr"
)

// DBTX is the subset of *pgxpool.Pool the stores use. pgx.Tx satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DBTX = (*pgxpool.Pool)(nil)

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// SQLSTATE codes translated at the storage boundary.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// constraintMessages names the client-facing text per violated constraint.
type constraintMessages struct {
	notFound string // row missing / FK target missing
	conflict string // unique violation
	invalid  string // check violation
}

// classify turns a pgx error into an *apperr.Error. Anything it does not
// recognise is Unknown and keeps op as context.
func classify(err error, op string, msgs constraintMessages) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && msgs.notFound != "" {
		return apperr.Wrap(apperr.NotFound, msgs.notFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation && msgs.conflict != "":
			return apperr.Wrap(apperr.Conflict, msgs.conflict, err)
		case pgErr.Code == foreignKeyViolation && msgs.notFound != "":
			return apperr.Wrap(apperr.NotFound, msgs.notFound, err)
		case pgErr.Code == checkViolation && msgs.invalid != "":
			return apperr.Wrap(apperr.Validation, msgs.invalid, err)
		}
	}
	return apperr.Wrap(apperr.Unknown, op, err)
}
