package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account and returns its first token pair.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", "", req)
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges email and password for a token pair.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken. The presented token is spent whether or not
// the caller receives the response.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the identity behind accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*Identity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var out Identity
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes accessToken and every refresh token of its account.
func (c *SDKClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", accessToken, LogoutRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// AuthenticateWithPassword logs in and wraps the result in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	out, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

// RegisterAndAuthenticate registers and wraps the result in a Session.
func (c *SDKClient) RegisterAndAuthenticate(ctx context.Context, req RegisterRequest) (*Session, error) {
	out, err := c.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}
