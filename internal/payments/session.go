// Package payments opens hosted-checkout sessions sized to a checkout's total.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

const (
	MetadataOrderIDs = "orderIds"
	MetadataUserID   = "userId"
	MetadataAppID    = "appId"
)

type SessionInput struct {
	Amount   decimal.Decimal
	OrderIDs []uuid.UUID
	UserID   string
}

// Session is the redirect reference handed back to the storefront.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type SessionCreator interface {
	CreateSession(ctx context.Context, input SessionInput) (*Session, error)
}

type Config struct {
	Currency     string
	TTL          time.Duration
	AppID        string
	PublicOrigin string
}

type Service struct {
	api pkgstripe.CheckoutSessions
	cfg Config
	now func() time.Time
}

// NewService opens sessions through the shared Stripe client.
func NewService(client *pkgstripe.Client, cfg Config) (*Service, error) {
	sessions := client.CheckoutSessions()
	if sessions == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return newService(sessions, cfg, time.Now)
}

func newService(api pkgstripe.CheckoutSessions, cfg Config, now func() time.Time) (*Service, error) {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, fmt.Errorf("app id required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "aed"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	cfg.PublicOrigin = strings.TrimRight(cfg.PublicOrigin, "/")
	return &Service{api: api, cfg: cfg, now: now}, nil
}

// CreateSession opens a single-line "Order" session for the checkout total.
func (s *Service) CreateSession(ctx context.Context, input SessionInput) (*Session, error) {
	if len(input.OrderIDs) == 0 {
		return nil, fmt.Errorf("order ids required")
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("session amount must be positive")
	}

	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(s.cfg.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String("Order"),
				},
				UnitAmount: stripe.Int64(UnitAmount(input.Amount)),
			},
			Quantity: stripe.Int64(1),
		}},
		ExpiresAt:  stripe.Int64(s.now().Add(s.cfg.TTL).Unix()),
		SuccessURL: stripe.String(s.cfg.PublicOrigin + "/loading?nextUrl=orders"),
		CancelURL:  stripe.String(s.cfg.PublicOrigin + "/cart"),
		Metadata: map[string]string{
			MetadataOrderIDs: JoinOrderIDs(input.OrderIDs),
			MetadataUserID:   input.UserID,
			MetadataAppID:    s.cfg.AppID,
		},
	}
	params.Context = ctx

	created, err := s.api.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

// UnitAmount converts a decimal amount into minor units, rounding half away from zero.
func UnitAmount(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func JoinOrderIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}

// ParseOrderIDs reads the comma separated orderIds metadata value.
func ParseOrderIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
