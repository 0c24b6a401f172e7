// Package checkout turns a cart into one order per selling store.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/address"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/guests"
	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/internal/shipping"
	"github.com/angelmondragon/marketplace-backend/internal/users"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const (
	PlacedMessage = "Orders Placed Successfully"

	guestUserName  = "Guest User"
	guestUserEmail = "guest@system.local"
	defaultZip     = "000000"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, input coupons.EvaluateInput) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error
}

type orderHistory interface {
	HasPriorOrders(ctx context.Context, buyer identity.Identity) (bool, error)
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type cartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Result is what a placed checkout returns. Session is set for hosted
// checkout; Orders is set for pay-on-delivery.
type Result struct {
	Message    string
	Orders     []models.Order
	OrderIDs   []uuid.UUID
	FullAmount decimal.Decimal
	Session    *payments.Session
}

type Service interface {
	PlaceOrder(ctx context.Context, req Request) (*Result, error)
}

type ServiceParams struct {
	Tx                txRunner
	Outbox            outboxPublisher
	Coupons           couponEvaluator
	History           orderHistory
	Products          productLoader
	Shipping          shipping.SettingsRepository
	Orders            orders.Repository
	Addresses         *address.Repository
	Users             *users.Repository
	Guests            *guests.Repository
	Payments          payments.SessionCreator
	Cart              cartClearer
	Notifier          notifications.Notifier
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
	ForceFreeShipping bool
	GuestTokenTTL     time.Duration
	NotifyTimeout     time.Duration
	PaymentTimeout    time.Duration
	PublicOrigin      string
	Now               func() time.Time
}

type service struct {
	tx                txRunner
	outbox            outboxPublisher
	coupons           couponEvaluator
	history           orderHistory
	products          productLoader
	shipping          shipping.SettingsRepository
	orders            orders.Repository
	addresses         *address.Repository
	users             *users.Repository
	guests            *guests.Repository
	payments          payments.SessionCreator
	cart              cartClearer
	notifier          notifications.Notifier
	metrics           *metrics.CheckoutMetrics
	logg              *logger.Logger
	forceFreeShipping bool
	guestTokenTTL     time.Duration
	notifyTimeout     time.Duration
	paymentTimeout    time.Duration
	publicOrigin      string
	now               func() time.Time
	newToken          func() (string, string, error)
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon evaluator required")
	case params.History == nil:
		return nil, fmt.Errorf("order history required")
	case params.Products == nil:
		return nil, fmt.Errorf("product loader required")
	case params.Shipping == nil:
		return nil, fmt.Errorf("shipping settings required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Guests == nil:
		return nil, fmt.Errorf("guest repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment session creator required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	ttl := params.GuestTokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	paymentTimeout := params.PaymentTimeout
	if paymentTimeout <= 0 {
		paymentTimeout = 10 * time.Second
	}
	return &service{
		tx:                params.Tx,
		outbox:            params.Outbox,
		coupons:           params.Coupons,
		history:           params.History,
		products:          params.Products,
		shipping:          params.Shipping,
		orders:            params.Orders,
		addresses:         params.Addresses,
		users:             params.Users,
		guests:            params.Guests,
		payments:          params.Payments,
		cart:              params.Cart,
		notifier:          params.Notifier,
		metrics:           params.Metrics,
		logg:              params.Logger,
		forceFreeShipping: params.ForceFreeShipping,
		guestTokenTTL:     ttl,
		notifyTimeout:     params.NotifyTimeout,
		paymentTimeout:    paymentTimeout,
		publicOrigin:      strings.TrimRight(params.PublicOrigin, "/"),
		now:               now,
		newToken:          guests.NewToken,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	result, err := s.placeOrder(ctx, req)
	if err != nil {
		s.metrics.IncFailure(failureReason(err))
		return nil, err
	}
	return result, nil
}

// checkoutPlan is everything computed before any row is written.
type checkoutPlan struct {
	req        *validatedRequest
	coupon     *models.Coupon
	totals     []GroupTotal
	fullAmount decimal.Decimal
}

func (s *service) placeOrder(ctx context.Context, raw Request) (*Result, error) {
	req, err := raw.validate()
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.New()
	logCtx := s.logCtx(ctx, checkoutID, req)

	created, rawToken, err := s.persist(ctx, checkoutID, plan)
	if err != nil {
		return nil, err
	}
	s.metrics.AddOrders(string(req.paymentMethod), len(created))

	ids := make([]uuid.UUID, 0, len(created))
	for _, order := range created {
		ids = append(ids, order.ID)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"order_count": len(created),
			"full_amount": plan.fullAmount.StringFixed(2),
		}), "checkout.placed")
	}

	s.notifyPlaced(ctx, req, created, rawToken)

	result := &Result{
		Message:    PlacedMessage,
		OrderIDs:   ids,
		FullAmount: plan.fullAmount,
	}

	if req.paymentMethod == enums.PaymentMethodStripe {
		sessionCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
		session, err := s.payments.CreateSession(sessionCtx, payments.SessionInput{
			Amount:   plan.fullAmount,
			OrderIDs: ids,
			UserID:   ownerUserID(req.buyer),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
		}
		result.Session = session
		return result, nil
	}

	if registered, ok := req.buyer.(identity.Registered); ok {
		if err := s.cart.Clear(ctx, registered.UserID); err != nil && s.logg != nil {
			s.logg.Warn(logCtx, "checkout.cart_clear_failed")
		}
	}
	result.Orders = created
	return result, nil
}

// plan resolves the coupon, reprices items and computes every order total.
func (s *service) plan(ctx context.Context, req *validatedRequest) (*checkoutPlan, error) {
	var coupon *models.Coupon
	if req.couponCode != "" {
		prior, err := s.history.HasPriorOrders(ctx, req.buyer)
		if err != nil {
			return nil, err
		}
		coupon, err = s.coupons.Evaluate(ctx, coupons.EvaluateInput{
			Code:           req.couponCode,
			Identity:       req.buyer,
			HasPriorOrders: prior,
		})
		if err != nil {
			return nil, err
		}
	}

	products, err := s.products.FindByIDs(ctx, productIDs(req.items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	priced := make([]PricedItem, 0, len(req.items))
	grandSubtotal := decimal.Zero
	totalQuantity := 0
	for _, item := range req.items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", item.ProductID)
		}
		if !product.InStock {
			return nil, pkgerrors.Newf(pkgerrors.CodePolicy, "%s is out of stock", product.Name)
		}
		line := PricedItem{Product: product, Quantity: item.Quantity}
		priced = append(priced, line)
		grandSubtotal = grandSubtotal.Add(line.LineTotal())
		totalQuantity += item.Quantity
	}

	fee := decimal.Zero
	if !s.forceFreeShipping {
		setting, err := s.shipping.Get(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping settings")
		}
		fee = shipping.Calculate(shipping.Input{
			GrandSubtotal: grandSubtotal,
			TotalQuantity: totalQuantity,
			ItemCount:     len(priced),
			Member:        req.buyer.IsMember(),
			Setting:       setting,
		})
	}

	totals, fullAmount := BuildOrderTotals(SplitByStore(priced), coupon, fee)
	if req.paymentMethod == enums.PaymentMethodStripe && !fullAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodePolicy, "Nothing to charge, choose cash on delivery")
	}
	return &checkoutPlan{req: req, coupon: coupon, totals: totals, fullAmount: fullAmount}, nil
}

// persist writes every order, the guest records and the coupon usage in one
// transaction. It returns the raw guest conversion token, if one was issued.
func (s *service) persist(ctx context.Context, checkoutID uuid.UUID, plan *checkoutPlan) ([]models.Order, string, error) {
	req := plan.req
	var (
		created  []models.Order
		rawToken string
	)

	if registered, ok := req.buyer.(identity.Registered); ok {
		if _, err := s.addresses.FindForUser(ctx, req.addressID, registered.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "Address not found")
			}
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created = make([]models.Order, 0, len(plan.totals))
		userID := models.GuestUserID

		switch buyer := req.buyer.(type) {
		case identity.Guest:
			if err := s.users.WithTx(tx).EnsureExists(ctx, models.GuestUserID, guestUserName, guestUserEmail); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure guest user")
			}
			token, err := s.issueGuestToken(ctx, tx, buyer)
			if err != nil {
				return err
			}
			rawToken = token
		case identity.Registered:
			userID = buyer.UserID
			if err := s.users.WithTx(tx).EnsureExists(ctx, buyer.UserID, buyer.Name, buyer.Email); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure user")
			}
		}

		for _, total := range plan.totals {
			order, err := s.buildOrder(ctx, tx, req, userID, plan.coupon, total)
			if err != nil {
				return err
			}
			if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			if err := s.emitCreated(ctx, tx, checkoutID, order, total, plan.coupon); err != nil {
				return err
			}
			for i := range order.Items {
				product := total.Group.Items[i].Product
				order.Items[i].Product = &product
			}
			created = append(created, *order)
		}

		if plan.coupon != nil {
			if err := s.coupons.IncrementUsage(ctx, tx, plan.coupon.Code); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return created, rawToken, nil
}

func (s *service) issueGuestToken(ctx context.Context, tx *gorm.DB, buyer identity.Guest) (string, error) {
	token, digest, err := s.newToken()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate convert token")
	}
	expiry := s.now().Add(s.guestTokenTTL).UTC()
	guest := &models.GuestUser{
		Name:               buyer.Name,
		Email:              buyer.Email,
		Phone:              buyer.Phone,
		ConvertTokenDigest: &digest,
		TokenExpiry:        &expiry,
	}
	if err := s.guests.WithTx(tx).Upsert(ctx, guest); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert guest")
	}
	return token, nil
}

func (s *service) buildOrder(ctx context.Context, tx *gorm.DB, req *validatedRequest, userID string, coupon *models.Coupon, total GroupTotal) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       total.Group.StoreID,
		UserID:        userID,
		AddressID:     req.addressID,
		Total:         total.Total,
		PaymentMethod: req.paymentMethod,
		Status:        enums.OrderStatusPlaced,
		IsCouponUsed:  coupon != nil,
	}
	if coupon != nil {
		order.Coupon = coupon.Snapshot()
	}
	for _, item := range total.Group.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		})
	}

	if req.guest == nil {
		return order, nil
	}

	// every guest order gets its own address row
	guest := req.guest
	zip := strings.TrimSpace(guest.Zip)
	if zip == "" {
		zip = defaultZip
	}
	addr := &models.Address{
		UserID:  models.GuestUserID,
		Name:    strings.TrimSpace(guest.Name),
		Email:   guest.Email,
		Street:  strings.TrimSpace(guest.Address),
		City:    strings.TrimSpace(guest.City),
		State:   strings.TrimSpace(guest.State),
		Zip:     zip,
		Country: strings.TrimSpace(guest.Country),
		Phone:   strings.TrimSpace(guest.Phone),
	}
	if err := s.addresses.WithTx(tx).Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest address")
	}
	name, email, phone := addr.Name, guest.Email, addr.Phone
	order.AddressID = addr.ID
	order.IsGuest = true
	order.GuestName = &name
	order.GuestEmail = &email
	order.GuestPhone = &phone
	return order, nil
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, checkoutID uuid.UUID, order *models.Order, total GroupTotal, coupon *models.Coupon) error {
	storeID := order.StoreID
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	data := payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		CheckoutID:    checkoutID,
		StoreID:       order.StoreID,
		UserID:        order.UserID,
		IsGuest:       order.IsGuest,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      total.Subtotal,
		Discount:      total.Discount.Round(2),
		ShippingFee:   total.ShippingFee,
		Total:         order.Total,
		ItemCount:     itemCount,
		CreatedAt:     s.now().UTC(),
	}
	if coupon != nil {
		data.CouponCode = coupon.Code
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: order.UserID, StoreID: &storeID},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return nil
}

// notifyPlaced sends one email per order. Guests receive the account
// conversion link.
func (s *service) notifyPlaced(ctx context.Context, req *validatedRequest, created []models.Order, rawToken string) {
	recipient := req.buyer.ContactEmail()
	if s.notifier == nil || recipient == "" {
		return
	}
	for i := range created {
		orderID := created[i].ID
		event := payloads.NotificationRequestedEvent{
			Recipient: recipient,
			Name:      req.buyer.DisplayName(),
			OrderID:   &orderID,
			Total:     created[i].Total.StringFixed(2),
		}
		if req.buyer.Kind() == identity.KindGuest {
			event.Kind = enums.NotificationKindGuestOrder
			event.Link = s.conversionLink(rawToken)
		} else {
			event.Kind = enums.NotificationKindOrderStatus
			event.Status = string(enums.OrderStatusPlaced)
		}
		notifications.SendBestEffort(ctx, s.notifier, s.notifyTimeout, s.logg, event)
	}
}

func (s *service) conversionLink(token string) string {
	if token == "" {
		return ""
	}
	return s.publicOrigin + "/guest/convert-account?token=" + url.QueryEscape(token)
}

func (s *service) logCtx(ctx context.Context, checkoutID uuid.UUID, req *validatedRequest) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"checkout_id":    checkoutID.String(),
		"payment_method": string(req.paymentMethod),
		"buyer_kind":     string(req.buyer.Kind()),
	})
	if registered, ok := req.buyer.(identity.Registered); ok {
		ctx = s.logg.WithUserID(ctx, registered.UserID)
	}
	return ctx
}

func ownerUserID(buyer identity.Identity) string {
	if registered, ok := buyer.(identity.Registered); ok {
		return registered.UserID
	}
	return models.GuestUserID
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "internal_error"
}
