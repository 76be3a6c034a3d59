package domain

import "time"

// ResetTicket is what a password-reset token maps to in the revocation store.
// ExpiresAt is fixed at issue and bounds any later rewrite of the entry.
type ResetTicket struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"exp"`
}
