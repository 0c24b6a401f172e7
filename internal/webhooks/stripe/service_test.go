package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/marketplace-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type stubOrders struct {
	ids       []uuid.UUID
	userID    string
	sessionID string
	calls     int
	err       error
}

func (s *stubOrders) MarkPaid(_ context.Context, ids []uuid.UUID, userID, sessionID string) ([]uuid.UUID, error) {
	s.calls++
	s.ids, s.userID, s.sessionID = ids, userID, sessionID
	return ids, s.err
}

type stubCart struct {
	cleared []string
	err     error
}

func (s *stubCart) Clear(_ context.Context, userID string) error {
	s.cleared = append(s.cleared, userID)
	return s.err
}

func sessionEvent(t *testing.T, eventType stripe.EventType, metadata map[string]string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(stripe.CheckoutSession{ID: "cs_123", Metadata: metadata})
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func newTestService(t *testing.T, orders *stubOrders, cart *stubCart) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Orders: orders, Cart: cart, AppID: "marketplace"})
	require.NoError(t, err)
	return svc
}

func TestCheckoutCompletedMarksOrdersPaid(t *testing.T) {
	orders, cart := &stubOrders{}, &stubCart{}
	svc := newTestService(t, orders, cart)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]string{
		payments.MetadataOrderIDs: payments.JoinOrderIDs(ids),
		payments.MetadataUserID:   "user-1",
		payments.MetadataAppID:    "marketplace",
	}))

	require.NoError(t, err)
	assert.Equal(t, ids, orders.ids)
	assert.Equal(t, "user-1", orders.userID)
	assert.Equal(t, "cs_123", orders.sessionID)
	assert.Equal(t, []string{"user-1"}, cart.cleared)
}

func TestCheckoutCompletedForGuestSkipsCart(t *testing.T) {
	orders, cart := &stubOrders{}, &stubCart{}
	svc := newTestService(t, orders, cart)

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]string{
		payments.MetadataOrderIDs: uuid.NewString(),
		payments.MetadataUserID:   "guest",
		payments.MetadataAppID:    "marketplace",
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, orders.calls)
	assert.Empty(t, cart.cleared)
}

func TestCheckoutCompletedIgnoresOtherApps(t *testing.T) {
	orders, cart := &stubOrders{}, &stubCart{}
	svc := newTestService(t, orders, cart)

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]string{
		payments.MetadataOrderIDs: uuid.NewString(),
		payments.MetadataAppID:    "other-store",
	}))

	require.NoError(t, err)
	assert.Zero(t, orders.calls)
}

func TestCheckoutCompletedRejectsBadMetadata(t *testing.T) {
	svc := newTestService(t, &stubOrders{}, &stubCart{})

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]string{
		payments.MetadataOrderIDs: "not-a-uuid",
		payments.MetadataAppID:    "marketplace",
	}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkPaidFailurePropagates(t *testing.T) {
	orders := &stubOrders{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db"), "load orders")}
	cart := &stubCart{}
	svc := newTestService(t, orders, cart)

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]string{
		payments.MetadataOrderIDs: uuid.NewString(),
		payments.MetadataUserID:   "user-1",
		payments.MetadataAppID:    "marketplace",
	}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, cart.cleared)
}

func TestOtherEventsAcknowledged(t *testing.T) {
	orders := &stubOrders{}
	svc := newTestService(t, orders, &stubCart{})

	err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, nil))
	require.NoError(t, err)
	assert.Zero(t, orders.calls)
}
