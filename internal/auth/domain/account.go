package domain

import (
	"strings"
	"time"
)

// Account is a user as the directory stores it.
type Account struct {
	ID           string
	Email        string  // normalised, unique
	PasswordHash *string // argon2 encoded, nil for federated-only accounts
	Role         Role
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether password login is possible for the account.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// PublicIdentity is the part of an account that is safe to hand back to the
// account holder.
type PublicIdentity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Permissions []string `json:"permissions"`
}

func (a *Account) Public() PublicIdentity {
	return PublicIdentity{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.Role,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Permissions: a.Role.Permissions(),
	}
}

// NormalizeEmail trims and lower-cases an email so lookups and attempt
// counting agree on one identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
