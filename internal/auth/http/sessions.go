package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/aussiebroadwan/haulage/internal/auth/service"
	"github.com/aussiebroadwan/haulage/pkg/authsdk"
	"github.com/aussiebroadwan/haulage/pkg/httpx"
)

type SessionHandler struct {
	SessionService *service.SessionService
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates an account and returns its first token pair. Admin and manager roles cannot be self-assigned.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"email, password, role, names"
//	@Success		201		{object}	authsdk.SessionResponse	"token pair and account"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request or weak_password"
//	@Failure		409		{object}	authsdk.ErrorResponse	"email_taken"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/register [post].
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeInvalidRequest(w, "email and password are required")
		return
	}

	sess, err := h.SessionService.Register(r.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		SourceAddr: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, sessionResponse(sess))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a token pair. Wrong password and unknown email answer the same.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.SessionResponse	"token pair and account"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"account_locked or rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeInvalidRequest(w, "email and password are required")
		return
	}

	sess, err := h.SessionService.Login(r.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		SourceAddr: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(sess))
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Returns a new token pair. The presented refresh token can never be used again.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	authsdk.SessionResponse	"token pair and account"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials, token_expired or token_malformed"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeInvalidRequest(w, "refresh_token is required")
		return
	}

	sess, err := h.SessionService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(sess))
}

// HandleLogout godoc
//
//	@Summary		Log out everywhere
//	@Description	Revokes the bearer access token and every refresh token of the account.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	false	"refresh_token of this device"
//	@Success		204		"Logged out"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if err := h.SessionService.Logout(ctx, httpx.BearerFromContext(ctx), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary		Current account
//	@Description	Returns the account behind the bearer access token, read fresh from the directory.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Identity		"account"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token or invalid_credentials"
//	@Failure		500	{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/me [get].
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := h.SessionService.Me(ctx, httpx.BearerFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identityResponse(identity))
}

func sessionResponse(s *service.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.Tokens.ExpiresIn,
		Account:      identityResponse(s.Account),
	}
}

func identityResponse(p domain.PublicIdentity) authsdk.Identity {
	perms := p.Permissions
	if perms == nil {
		perms = []string{}
	}
	return authsdk.Identity{
		ID:          p.ID,
		Email:       p.Email,
		Role:        string(p.Role),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Permissions: perms,
	}
}
