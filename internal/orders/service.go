package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// FulfillmentUpdate holds the seller-editable order fields; nil fields are
// left untouched.
type FulfillmentUpdate struct {
	Status      *enums.OrderStatus
	TrackingID  *string
	TrackingURL *string
	Courier     *string
}

func (u FulfillmentUpdate) empty() bool {
	return u.Status == nil && u.TrackingID == nil && u.TrackingURL == nil && u.Courier == nil
}

type Service interface {
	UpdateFulfillment(ctx context.Context, storeID, orderID uuid.UUID, update FulfillmentUpdate) (*models.Order, error)
	UpdateStatus(ctx context.Context, storeID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, storeID, orderID uuid.UUID) error
	ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error)
	ListForUser(ctx context.Context, userID string, params pagination.Params) (pagination.Page[models.Order], error)
	HasPriorOrders(ctx context.Context, buyer identity.Identity) (bool, error)
	MarkPaid(ctx context.Context, orderIDs []uuid.UUID, userID, sessionID string) ([]uuid.UUID, error)
}

type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Notifier      notifications.Notifier
	Users         userLookup
	NotifyTimeout time.Duration
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	notifier      notifications.Notifier
	users         userLookup
	notifyTimeout time.Duration
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		notifier:      params.Notifier,
		users:         params.Users,
		notifyTimeout: params.NotifyTimeout,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) UpdateFulfillment(ctx context.Context, storeID, orderID uuid.UUID, update FulfillmentUpdate) (*models.Order, error) {
	if update.empty() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNoFulfillmentChanges, "at least one of status, trackingId, trackingUrl, courier is required")
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *update.Status)
	}

	var (
		order           *models.Order
		previous        enums.OrderStatus
		statusChanged   bool
		trackingChanged bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindForStore(ctx, orderID, storeID)
		if err != nil {
			return mapFindError(err)
		}
		order = found
		previous = found.Status

		fields := map[string]any{}
		if update.Status != nil {
			statusChanged = *update.Status != found.Status
			fields["status"] = *update.Status
			found.Status = *update.Status
		}
		if update.TrackingID != nil {
			trackingChanged = stringValue(found.TrackingID) != *update.TrackingID
			fields["tracking_id"] = *update.TrackingID
			found.TrackingID = update.TrackingID
		}
		if update.TrackingURL != nil {
			fields["tracking_url"] = *update.TrackingURL
			found.TrackingURL = update.TrackingURL
		}
		if update.Courier != nil {
			fields["courier"] = *update.Courier
			found.Courier = update.Courier
		}
		found.UpdatedAt = s.now().UTC()
		fields["updated_at"] = found.UpdatedAt
		if err := repo.UpdateFields(ctx, found.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if !statusChanged && !trackingChanged {
			return nil
		}
		return s.emitStatusChanged(ctx, tx, found, previous)
	})
	if err != nil {
		return nil, err
	}

	if statusChanged || trackingChanged {
		s.notifyStatus(ctx, order)
	}
	return order, nil
}

// UpdateStatus is the status-only form of UpdateFulfillment.
func (s *service) UpdateStatus(ctx context.Context, storeID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if strings.TrimSpace(string(status)) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Status is required")
	}
	return s.UpdateFulfillment(ctx, storeID, orderID, FulfillmentUpdate{Status: &status})
}

func (s *service) Delete(ctx context.Context, storeID, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindForStore(ctx, orderID, storeID); err != nil {
			return mapFindError(err)
		}
		if err := repo.Delete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	return s.list(ctx, ListQuery{StoreID: &storeID}, params)
}

// ListForUser lists cash-on-delivery orders and paid hosted-checkout orders.
func (s *service) ListForUser(ctx context.Context, userID string, params pagination.Params) (pagination.Page[models.Order], error) {
	if strings.TrimSpace(userID) == "" {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
	}
	return s.list(ctx, ListQuery{UserID: userID}, params)
}

func (s *service) list(ctx context.Context, query ListQuery, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor
	query.Limit = params.Limit

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// HasPriorOrders reports whether the buyer has placed an order before. Guests
// are matched by email.
func (s *service) HasPriorOrders(ctx context.Context, buyer identity.Identity) (bool, error) {
	var (
		count int64
		err   error
	)
	switch b := buyer.(type) {
	case identity.Registered:
		count, err = s.repo.CountByUser(ctx, b.UserID)
	case identity.Guest:
		count, err = s.repo.CountByGuestEmail(ctx, b.Email)
	default:
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return count > 0, nil
}

// MarkPaid flags the referenced orders as paid and returns the IDs that
// changed. Orders owned by another user are skipped.
func (s *service) MarkPaid(ctx context.Context, orderIDs []uuid.UUID, userID, sessionID string) ([]uuid.UUID, error) {
	var changed []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.FindByIDs(ctx, orderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
		}
		pending := make([]models.Order, 0, len(rows))
		for _, order := range rows {
			if order.IsPaid {
				continue
			}
			if userID != "" && order.UserID != userID {
				continue
			}
			pending = append(pending, order)
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(pending))
		for _, order := range pending {
			ids = append(ids, order.ID)
		}
		if _, err := repo.MarkPaid(ctx, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark orders paid")
		}

		paidAt := s.now().UTC()
		for _, order := range pending {
			storeID := order.StoreID
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: order.UserID, StoreID: &storeID},
				Data: payloads.OrderPaidEvent{
					OrderID:   order.ID,
					StoreID:   order.StoreID,
					UserID:    order.UserID,
					Total:     order.Total,
					SessionID: sessionID,
					PaidAt:    paidAt,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
			}
		}
		changed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, previous enums.OrderStatus) error {
	storeID := order.StoreID
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{StoreID: &storeID, Role: "seller"},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			StoreID:    order.StoreID,
			From:       previous,
			To:         order.Status,
			TrackingID: stringValue(order.TrackingID),
			ChangedAt:  order.UpdatedAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
	}
	return nil
}

func (s *service) notifyStatus(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	recipient, name := s.recipientFor(ctx, order)
	if recipient == "" {
		return
	}
	orderID := order.ID
	notifications.SendBestEffort(ctx, s.notifier, s.notifyTimeout, s.logg, payloads.NotificationRequestedEvent{
		Kind:      enums.NotificationKindOrderStatus,
		Recipient: recipient,
		Name:      name,
		OrderID:   &orderID,
		Status:    string(order.Status),
		Tracking:  stringValue(order.TrackingID),
	})
}

func (s *service) recipientFor(ctx context.Context, order *models.Order) (string, string) {
	if order.IsGuest {
		return stringValue(order.GuestEmail), stringValue(order.GuestName)
	}
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "orders.notify.recipient_lookup_failed")
		}
		return "", ""
	}
	return user.Email, user.Name
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFoundOrUnauthorized, "Order not found or unauthorized")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
