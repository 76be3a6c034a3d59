package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry a Session refreshes its access token.
const refreshBuffer = 30 * time.Second

// ErrSessionClosed is returned by a Session after Logout.
var ErrSessionClosed = errors.New("authsdk: session logged out")

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	account      Identity
	permissions  map[string]bool
	closed       bool
}

// newSession creates a new authenticated session from a session response.
func newSession(client *SDKClient, out *SessionResponse) *Session {
	s := &Session{client: client}
	s.apply(out)
	return s
}

// apply stores a fresh token pair. Callers hold mu or own s exclusively.
func (s *Session) apply(out *SessionResponse) {
	s.accessToken = out.AccessToken
	s.refreshToken = out.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - refreshBuffer)
	s.account = out.Account
	s.permissions = make(map[string]bool, len(out.Account.Permissions))
	for _, p := range out.Account.Permissions {
		s.permissions[p] = true
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", ErrSessionClosed
	}
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if s.closed {
		return "", ErrSessionClosed
	}
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available")
	}

	out, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(out)
	return nil
}

// Refresh rotates the refresh token now, regardless of access token expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.refreshLocked(ctx)
}

// Me returns the identity of the session's account as the server sees it now.
func (s *Session) Me(ctx context.Context) (*Identity, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var out Identity
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends every session of the account and closes this one.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.closed = true
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}

// RevokeSessions ends every session of another account. Requires the
// sessions:revoke permission.
func (s *Session) RevokeSessions(ctx context.Context, accountID string) (*RevokeSessionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost,
		"/v1/auth/accounts/"+accountID+"/revoke-sessions", nil, "sessions:revoke")
	if err != nil {
		return nil, err
	}

	var out RevokeSessionsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Account returns the identity captured when the tokens were last issued.
func (s *Session) Account() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// Permissions returns a sorted copy of the granted permissions.
func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// HasPermission reports whether the session holds p, directly or through
// the wildcard.
func (s *Session) HasPermission(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions["*"] || s.permissions[p]
}

// checkPermissions checks if the session holds every required permission.
// Returns an error if permission checking is enabled and one is missing.
func (s *Session) checkPermissions(required ...string) error {
	if !s.client.CheckPermissions || len(required) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.permissions["*"] {
		return nil
	}

	var missing []string
	for _, p := range required {
		if !s.permissions[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required permission(s): %s", strings.Join(missing, ", "))
	}

	return nil
}
