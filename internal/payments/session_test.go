package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	pkgstripe "github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

type stubSessions struct {
	params *stripe.CheckoutSessionCreateParams
	ctx    context.Context
	err    error
}

func (s *stubSessions) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	s.ctx = ctx
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

var fixedNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func TestCreateSessionBuildsParams(t *testing.T) {
	api := &stubSessions{}
	svc, err := newService(api, Config{AppID: "marketplace", PublicOrigin: "https://shop.example.com/"}, func() time.Time { return fixedNow })
	require.NoError(t, err)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	sess, err := svc.CreateSession(context.Background(), SessionInput{
		Amount:   decimal.RequireFromString("225.505"),
		OrderIDs: ids,
		UserID:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)

	p := api.params
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(22551), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "aed", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, "Order", *p.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, fixedNow.Add(30*time.Minute).Unix(), *p.ExpiresAt)
	assert.Equal(t, "https://shop.example.com/cart", *p.CancelURL)
	assert.Equal(t, "marketplace", p.Metadata[MetadataAppID])
	assert.Equal(t, "user-1", p.Metadata[MetadataUserID])

	parsed, err := ParseOrderIDs(p.Metadata[MetadataOrderIDs])
	require.NoError(t, err)
	assert.Equal(t, ids, parsed)
	require.NotNil(t, p.IdempotencyKey)
	assert.Equal(t, "checkout-session:"+ids[0].String(), *p.IdempotencyKey)
}

func TestCreateSessionPassesCallerContext(t *testing.T) {
	api := &stubSessions{}
	svc, err := newService(api, Config{AppID: "marketplace"}, time.Now)
	require.NoError(t, err)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "checkout-1")
	_, err = svc.CreateSession(ctx, SessionInput{Amount: decimal.NewFromInt(10), OrderIDs: []uuid.UUID{uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, "checkout-1", api.ctx.Value(ctxKey{}))
}

func TestNewServiceRequiresStripeClient(t *testing.T) {
	_, err := NewService(nil, Config{AppID: "marketplace"})
	require.ErrorContains(t, err, "stripe client required")

	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_1"}, nil)
	require.NoError(t, err)
	svc, err := NewService(client, Config{AppID: "marketplace"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateSessionErrors(t *testing.T) {
	api := &stubSessions{err: errors.New("card_declined")}
	svc, err := newService(api, Config{AppID: "marketplace"}, time.Now)
	require.NoError(t, err)

	_, err = svc.CreateSession(context.Background(), SessionInput{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)

	_, err = svc.CreateSession(context.Background(), SessionInput{Amount: decimal.Zero, OrderIDs: []uuid.UUID{uuid.New()}})
	require.Error(t, err)

	_, err = svc.CreateSession(context.Background(), SessionInput{Amount: decimal.NewFromInt(10), OrderIDs: []uuid.UUID{uuid.New()}})
	require.ErrorContains(t, err, "card_declined")
}

func TestParseOrderIDsRejectsGarbage(t *testing.T) {
	_, err := ParseOrderIDs("not-a-uuid")
	require.Error(t, err)

	ids, err := ParseOrderIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUnitAmount(t *testing.T) {
	assert.Equal(t, int64(500), UnitAmount(decimal.NewFromInt(5)))
	assert.Equal(t, int64(1999), UnitAmount(decimal.RequireFromString("19.99")))
}
