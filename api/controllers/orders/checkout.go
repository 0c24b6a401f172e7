package orders

import (
	"net/http"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type placedResponse struct {
	Message string          `json:"message"`
	Order   *orderResponse  `json:"order,omitempty"`
	Orders  []orderResponse `json:"orders,omitempty"`
}

type sessionResponse struct {
	Session *payments.Session `json:"session"`
}

// PlaceOrder runs checkout for a guest or the authenticated buyer. Hosted
// payment returns the session to redirect to; pay-on-delivery returns the
// created orders.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkout.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if claims, ok := middleware.ClaimsFromContext(ctx); ok {
			payload.Caller = &claims
		}

		result, err := svc.PlaceOrder(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.Session != nil {
			responses.WriteSuccess(w, sessionResponse{Session: result.Session})
			return
		}

		resp := placedResponse{Message: result.Message}
		if len(result.Orders) == 1 {
			order := newOrderResponse(result.Orders[0])
			resp.Order = &order
		} else {
			resp.Orders = newOrderResponses(result.Orders)
		}
		responses.WriteSuccess(w, resp)
	}
}
