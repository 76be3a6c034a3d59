package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatchesOnVisibleKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    Kind
		visible error
	}{
		{KindUnknownAccount, ErrInvalidCredentials},
		{KindPasswordNotSet, ErrInvalidCredentials},
		{KindWrongPassword, ErrInvalidCredentials},
		{KindVerifyTimeout, ErrInvalidCredentials},
		{KindTokenRevoked, ErrInvalidCredentials},
		{KindSessionNotFound, ErrInvalidCredentials},
		{KindStoreUnavailable, ErrInternal},
		{KindDirectoryUnavailable, ErrInternal},
		{KindLocked, ErrLocked},
		{KindTokenExpired, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fail("op", tt.kind, nil)
			require.ErrorIs(t, err, tt.visible)
			require.Equal(t, tt.kind, RealKind(err))
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("handler: %w", fail("refresh", KindStoreUnavailable, cause))

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrInternal)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, KindInternal, VisibleKind(err))
	require.Equal(t, "handler: refresh: internal_error (store_unavailable): connection refused", err.Error())
}

func TestVisibleKindOfForeignError(t *testing.T) {
	t.Parallel()
	require.Equal(t, KindInternal, VisibleKind(errors.New("boom")))
	require.Equal(t, KindInternal, RealKind(nil))
}
