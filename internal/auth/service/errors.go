package service

import (
	"errors"
	"fmt"
)

// Kind classifies the outcome of a session operation.
type Kind string

// Kinds that may reach a client.
const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindLocked             Kind = "account_locked"
	KindTokenExpired       Kind = "token_expired"
	KindTokenMalformed     Kind = "token_malformed"
	KindInvalidResetToken  Kind = "invalid_or_expired_reset_token"
	KindEmailTaken         Kind = "email_taken"
	KindWeakPassword       Kind = "weak_password"
	KindInvalidRequest     Kind = "invalid_request"
	KindInternal           Kind = "internal_error"
)

// Kinds that are only ever logged. Each collapses into a visible kind.
const (
	KindUnknownAccount       Kind = "unknown_account"
	KindPasswordNotSet       Kind = "password_not_set"
	KindWrongPassword        Kind = "wrong_password"
	KindVerifyTimeout        Kind = "verify_timeout"
	KindTokenRevoked         Kind = "token_revoked"
	KindSessionNotFound      Kind = "session_not_found"
	KindStoreUnavailable     Kind = "store_unavailable"
	KindDirectoryUnavailable Kind = "directory_unavailable"
)

var visibleKinds = map[Kind]Kind{
	KindUnknownAccount:       KindInvalidCredentials,
	KindPasswordNotSet:       KindInvalidCredentials,
	KindWrongPassword:        KindInvalidCredentials,
	KindVerifyTimeout:        KindInvalidCredentials,
	KindTokenRevoked:         KindInvalidCredentials,
	KindSessionNotFound:      KindInvalidCredentials,
	KindStoreUnavailable:     KindInternal,
	KindDirectoryUnavailable: KindInternal,
}

// Visible maps k to the kind a client is allowed to see.
func (k Kind) Visible() Kind {
	if v, ok := visibleKinds[k]; ok {
		return v
	}
	return k
}

// Error is the single outcome type of SessionService. Kind is the real cause
// and goes to logs. Visible is what the HTTP layer may show, so an unknown
// account and a wrong password look the same from outside.
type Error struct {
	Kind    Kind
	Visible Kind
	Op      string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Visible)
	if e.Kind != e.Visible {
		msg += " (" + string(e.Kind) + ")"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the visible kind, so errors.Is(err, ErrInvalidCredentials)
// holds for every cause that collapses into invalid credentials.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Visible == e.Visible
}

var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Visible: KindInvalidCredentials}
	ErrLocked             = &Error{Kind: KindLocked, Visible: KindLocked}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Visible: KindTokenExpired}
	ErrTokenMalformed     = &Error{Kind: KindTokenMalformed, Visible: KindTokenMalformed}
	ErrInvalidResetToken  = &Error{Kind: KindInvalidResetToken, Visible: KindInvalidResetToken}
	ErrEmailTaken         = &Error{Kind: KindEmailTaken, Visible: KindEmailTaken}
	ErrWeakPassword       = &Error{Kind: KindWeakPassword, Visible: KindWeakPassword}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest, Visible: KindInvalidRequest}
	ErrInternal           = &Error{Kind: KindInternal, Visible: KindInternal}
)

func fail(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Visible: kind.Visible(), Op: op, Err: err}
}

func failf(op string, kind Kind, format string, args ...any) *Error {
	return fail(op, kind, fmt.Errorf(format, args...))
}

// VisibleKind returns the client-visible kind of err. Anything that is not
// an *Error is internal.
func VisibleKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Visible
	}
	return KindInternal
}

// RealKind returns the logged kind of err.
func RealKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
