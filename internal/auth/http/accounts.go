package http

import (
	"net/http"

	"github.com/aussiebroadwan/haulage/internal/auth/service"
	"github.com/aussiebroadwan/haulage/pkg/authsdk"
	"github.com/aussiebroadwan/haulage/pkg/httpx"
	"github.com/aussiebroadwan/haulage/pkg/idx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

type AccountsHandler struct {
	SessionService *service.SessionService
}

// HandleRevokeSessions godoc
//
//	@Summary		Revoke every session of an account
//	@Description	Drops all refresh tokens of the account. Access tokens already issued expire on their own. Requires 'sessions:revoke'.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string							true	"Account ID"
//	@Success		200	{object}	authsdk.RevokeSessionsResponse	"account_id, revoked"
//	@Failure		400	{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse			"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse			"insufficient_scope"
//	@Failure		500	{object}	authsdk.ErrorResponse			"internal_error"
//	@Router			/v1/auth/accounts/{id}/revoke-sessions [post].
func (h *AccountsHandler) HandleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		writeInvalidRequest(w, "account id must be a ULID")
		return
	}
	accountID := id.String()

	n, err := h.SessionService.RevokeSessions(ctx, accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("operator revoked sessions",
		"operator", httpx.SubjectFromContext(ctx), "account_id", accountID, "revoked", n)

	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeSessionsResponse{
		AccountID: accountID,
		Revoked:   n,
	})
}
