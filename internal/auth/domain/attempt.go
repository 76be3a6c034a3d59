package domain

import "time"

// LoginAttempt is an append-only fact about one authentication attempt.
type LoginAttempt struct {
	ID          string
	Identifier  string // normalised email, whether or not an account exists
	SourceAddr  string
	Success     bool
	AttemptedAt time.Time
}
