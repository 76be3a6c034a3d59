package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the haulage authentication service.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckPermissions makes a Session refuse calls it knows will be
	// rejected for a missing permission, without a round trip. Set to false
	// in tests that exercise the server-side check.
	// Default: true
	CheckPermissions bool
}

// NewSDKClient creates a new auth service client with permission checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckPermissions: true,
	}
}

// NewSessionFromTokens creates an authenticated session from existing tokens,
// e.g. ones persisted by a previous process. The session still refreshes
// automatically when the access token expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int64, account Identity) *Session {
	return newSession(c, &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Account:      account,
	})
}
