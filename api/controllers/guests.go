package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/guests"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type convertAccountRequest struct {
	Token string `json:"token"`
}

type convertAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

type verifyTokenResponse struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GuestConvert turns a guest checkout into a registered account using the
// token from the order email.
func GuestConvert(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		var payload convertAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Convert(ctx, payload.Token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, convertAccountResponse{
			Success: true,
			Message: result.Message,
			Email:   result.Email,
		})
	}
}

// GuestVerify checks a conversion token without creating the account.
func GuestVerify(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		result, err := svc.Verify(ctx, r.URL.Query().Get("token"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, verifyTokenResponse{
			Valid: result.Valid,
			Name:  result.Name,
			Email: result.Email,
		})
	}
}
