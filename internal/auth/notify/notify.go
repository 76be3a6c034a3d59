// Package notify carries outbound messages of the auth core: password reset
// notices for the mailer and security alerts for whoever watches them.
package notify

import (
	"context"
	"time"
)

// PasswordResetNotice asks the mailer to deliver a reset link. Token is the
// raw one-time token and must only travel to the delivery channel.
type PasswordResetNotice struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier delivers reset notices. Delivery is best effort from the caller's
// point of view, errors are logged and never change a response.
type Notifier interface {
	SendPasswordReset(ctx context.Context, n PasswordResetNotice) error
}

type AlertKind string

const (
	// AlertLockoutHit is raised when a login arrives for a locked identifier.
	AlertLockoutHit AlertKind = "login_locked"

	// AlertLockoutThreshold is raised when a failure pushes an identifier to
	// the lockout threshold.
	AlertLockoutThreshold AlertKind = "lockout_threshold_reached"

	// AlertRefreshReuse is raised when a valid refresh token is presented
	// after its record was consumed or removed.
	AlertRefreshReuse AlertKind = "refresh_token_reuse"

	// AlertRevocationFailed is raised when sessions could not be revoked
	// after a password change.
	AlertRevocationFailed AlertKind = "session_revocation_failed"
)

type SecurityAlert struct {
	Kind       AlertKind `json:"kind"`
	Subject    string    `json:"sub,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	SourceAddr string    `json:"source_addr,omitempty"`
	Failures   int       `json:"failures,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// key picks the partition key for an alert so events about one account or
// identifier stay ordered.
func (a SecurityAlert) key() string {
	if a.Subject != "" {
		return a.Subject
	}
	return a.Identifier
}

// AlertSink receives security alerts. Alert never fails from the caller's
// point of view, sinks log their own delivery errors.
type AlertSink interface {
	Alert(ctx context.Context, a SecurityAlert)
}
