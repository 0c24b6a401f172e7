package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type orderPayments interface {
	MarkPaid(ctx context.Context, orderIDs []uuid.UUID, userID, sessionID string) ([]uuid.UUID, error)
}

type cartClearer interface {
	Clear(ctx context.Context, userID string) error
}

type ServiceParams struct {
	Orders orderPayments
	Cart   cartClearer
	AppID  string
	Logger *logger.Logger
}

// Service confirms hosted-checkout payments reported by Stripe.
type Service struct {
	orders orderPayments
	cart   cartClearer
	appID  string
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order payments required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.AppID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "app id required")
	}
	return &Service{
		orders: params.Orders,
		cart:   params.Cart,
		appID:  params.AppID,
		logg:   params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.confirmPayment(ctx, &session)
	default:
		return nil
	}
}

// confirmPayment marks the session's orders paid and empties the buyer's cart.
// Sessions created by another application sharing the account are ignored.
func (s *Service) confirmPayment(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.Metadata[payments.MetadataAppID] != s.appID {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "stripe.session_foreign_app")
		}
		return nil
	}

	orderIDs, err := payments.ParseOrderIDs(session.Metadata[payments.MetadataOrderIDs])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order ids in session metadata")
	}
	if len(orderIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "session metadata has no order ids")
	}
	userID := session.Metadata[payments.MetadataUserID]

	changed, err := s.orders.MarkPaid(ctx, orderIDs, userID, session.ID)
	if err != nil {
		return err
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"session_id":   session.ID,
			"orders_paid":  len(changed),
			"orders_total": len(orderIDs),
		})
		s.logg.Info(logCtx, "stripe.orders_paid")
	}

	if userID == "" || userID == models.GuestUserID {
		return nil
	}
	if err := s.cart.Clear(ctx, userID); err != nil && s.logg != nil {
		s.logg.Error(logCtx, "stripe.cart_clear_failed", err)
	}
	return nil
}
