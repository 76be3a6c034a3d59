package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
)

type loginAttemptsRepo struct {
	db dbtx
}

func (r *loginAttemptsRepo) Record(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, identifier, source_addr, success, attempted_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Identifier, a.SourceAddr, a.Success, toMillis(a.AttemptedAt))
	return mapConstraint(err)
}

func (r *loginAttemptsRepo) CountFailuresSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE identifier = ? AND success = 0 AND attempted_at >= ?`,
		identifier, toMillis(since)).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *loginAttemptsRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE attempted_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
