package http

import (
	"net/http"

	"github.com/aussiebroadwan/haulage/internal/auth/service"
	"github.com/aussiebroadwan/haulage/pkg/authsdk"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

// apiErrors maps every client-visible kind to its response.
var apiErrors = map[service.Kind]*authsdk.APIError{
	service.KindInvalidCredentials: authsdk.ErrInvalidCredentials,
	service.KindLocked:             authsdk.ErrAccountLocked,
	service.KindTokenExpired:       authsdk.ErrTokenExpired,
	service.KindTokenMalformed:     authsdk.ErrTokenMalformed,
	service.KindInvalidResetToken:  authsdk.ErrInvalidResetToken,
	service.KindEmailTaken:         authsdk.ErrEmailTaken,
	service.KindWeakPassword:       authsdk.ErrWeakPassword,
	service.KindInvalidRequest:     authsdk.ErrInvalidRequest,
	service.KindInternal:           authsdk.ErrInternal,
}

// apiErrorFor returns the response for a service error. Only the visible
// kind decides it, the real kind never reaches the wire.
func apiErrorFor(err error) *authsdk.APIError {
	if e, ok := apiErrors[service.VisibleKind(err)]; ok {
		return e
	}
	return authsdk.ErrInternal
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiErrorFor(err)
	log := slogx.FromContext(r.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", "kind", service.RealKind(err), "err", err)
	} else {
		log.Debug("request rejected", "kind", service.RealKind(err), "visible", apiErr.Code)
	}
	apiErr.WriteError(w)
}

func writeInvalidRequest(w http.ResponseWriter, desc string) {
	authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, desc).WriteError(w)
}
