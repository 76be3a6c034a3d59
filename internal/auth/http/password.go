package http

import (
	"net/http"

	"github.com/aussiebroadwan/haulage/internal/auth/service"
	"github.com/aussiebroadwan/haulage/pkg/authsdk"
	"github.com/aussiebroadwan/haulage/pkg/httpx"
)

// forgotPasswordMessage is the only answer /password/forgot ever gives.
const forgotPasswordMessage = "if an account exists for this email, a reset link has been sent"

type PasswordHandler struct {
	SessionService *service.SessionService
}

// HandleForgot godoc
//
//	@Summary		Request a password reset
//	@Description	Always answers 202 with the same body, whether or not the account exists.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"email"
//	@Success		202		{object}	authsdk.ForgotPasswordResponse	"message"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_request"
//	@Router			/v1/auth/password/forgot [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeInvalidRequest(w, "email is required")
		return
	}

	if err := h.SessionService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, authsdk.ForgotPasswordResponse{
		Message: forgotPasswordMessage,
	})
}

// HandleReset godoc
//
//	@Summary		Reset a password
//	@Description	Redeems a reset token exactly once and ends every session of the account.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.ResetPasswordRequest	true	"token, new_password"
//	@Success		204		"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request, weak_password or invalid_or_expired_reset_token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/password/reset [post].
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeInvalidRequest(w, "token and new_password are required")
		return
	}

	if err := h.SessionService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCheck godoc
//
//	@Summary		Check a reset token
//	@Description	Reports whether a reset token is still redeemable without spending it.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.ResetCheckRequest	true	"token"
//	@Success		204		"Token is valid"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request or invalid_or_expired_reset_token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/password/reset/check [post].
func (h *PasswordHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeInvalidRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeInvalidRequest(w, "token is required")
		return
	}

	if err := h.SessionService.CheckResetToken(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
