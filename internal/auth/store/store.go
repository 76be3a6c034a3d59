package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the user directory and the
// login attempt log. Sub-repositories hang off it so a transaction can hand
// out the same repositories bound to the transaction, and so nobody opens a
// transaction inside a transaction.
type Store interface {
	Accounts() Accounts
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// FindByIdentifier looks an account up by normalised email.
	FindByIdentifier(ctx context.Context, email string) (domain.Account, error)

	FindByID(ctx context.Context, id string) (domain.Account, error)

	// Create inserts a new account. The id is provided by the caller (ULID).
	// Returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the argon2 hash and bumps updated_at. It
	// reports false when no account has that id.
	UpdatePasswordHash(ctx context.Context, id, hash string) (bool, error)

	// LinkIdentity records that provider/subject authenticates as accountID.
	LinkIdentity(ctx context.Context, accountID, provider, subject string) error

	// FindByExternalIdentity resolves a linked federated identity.
	FindByExternalIdentity(ctx context.Context, provider, subject string) (domain.Account, error)
}

// LoginAttempts is the append-only attempt log behind lockout decisions.
type LoginAttempts interface {
	Record(ctx context.Context, a domain.LoginAttempt) error

	// CountFailuresSince counts failed attempts for identifier at or after since.
	CountFailuresSince(ctx context.Context, identifier string, since time.Time) (int, error)

	// DeleteBefore prunes attempts older than before. Housekeeping only.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
