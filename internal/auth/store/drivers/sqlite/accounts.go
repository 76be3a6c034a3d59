package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, password_hash, role, first_name, last_name, created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (domain.Account, error) {
	var (
		a                    domain.Account
		hash                 sql.NullString
		role                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.Email, &hash, &role, &a.FirstName, &a.LastName, &createdAt, &updatedAt); err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.PasswordHash = mapNullStringPtr(hash)
	a.Role = domain.Role(role)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *accountsRepo) FindByIdentifier(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`,
		domain.NormalizeEmail(email))
	return scanAccount(row)
}

func (r *accountsRepo) FindByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		domain.NormalizeEmail(a.Email),
		mapOptionalString(a.PasswordHash),
		string(a.Role),
		a.FirstName,
		a.LastName,
		toMillis(a.CreatedAt),
		toMillis(a.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(time.Now()), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *accountsRepo) LinkIdentity(ctx context.Context, accountID, provider, subject string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO account_identities (provider, subject, account_id, created_at) VALUES (?, ?, ?, ?)`,
		provider, subject, accountID, toMillis(time.Now()))
	return mapConstraint(err)
}

func (r *accountsRepo) FindByExternalIdentity(ctx context.Context, provider, subject string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.email, a.password_hash, a.role, a.first_name, a.last_name, a.created_at, a.updated_at
		   FROM accounts a
		   JOIN account_identities i ON i.account_id = a.id
		  WHERE i.provider = ? AND i.subject = ?`,
		provider, subject)
	return scanAccount(row)
}
