// Package returns handles buyer return and replacement requests.
package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/media"
	pkgdb "github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const (
	SubmittedMessage     = "Return/replacement request submitted successfully"
	StatusUpdatedMessage = "Request status updated successfully"

	returnWindowDays      = 7
	replacementWindowDays = 15

	uniqueOrderConstraint = "return_requests_order_id_key"
	sqliteOrderConstraint = "return_requests.order_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderLoader interface {
	FindForUser(ctx context.Context, id uuid.UUID, userID string) (*models.Order, error)
}

type mediaUploader interface {
	UploadAll(ctx context.Context, folder media.Folder, files []media.File) ([]string, error)
}

// CreateInput is a buyer's request. Images and Videos are already-hosted
// URLs; ImageFiles and VideoFiles are uploaded before the row is written.
type CreateInput struct {
	OrderID        string
	Type           string
	Reason         string
	Description    string
	Images         []string
	Videos         []string
	ImageFiles     []media.File
	VideoFiles     []media.File
	FastProcess    bool
	ProductRating  *int
	DeliveryRating *int
	ReviewText     *string
}

type Service interface {
	Create(ctx context.Context, userID string, input CreateInput) (*models.ReturnRequest, error)
	ListForUser(ctx context.Context, userID string) ([]models.ReturnRequest, error)
	ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.ReturnRequest, error)
	UpdateStatus(ctx context.Context, storeID, requestID uuid.UUID, status string) (*models.ReturnRequest, error)
}

type ServiceParams struct {
	Repo   *Repository
	Orders orderLoader
	Media  mediaUploader
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   *Repository
	orders orderLoader
	media  mediaUploader
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("return request repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order loader required")
	case params.Media == nil:
		return nil, fmt.Errorf("media uploader required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		orders: params.Orders,
		media:  params.Media,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID string, input CreateInput) (*models.ReturnRequest, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
	}
	orderRef := strings.TrimSpace(input.OrderID)
	rawType := strings.ToUpper(strings.TrimSpace(input.Type))
	reason := strings.TrimSpace(input.Reason)
	if orderRef == "" || rawType == "" || reason == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingFields, "missing required fields")
	}
	requestType, err := enums.ParseReturnRequestType(rawType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type")
	}
	if err := validateRating("productRating", input.ProductRating); err != nil {
		return nil, err
	}
	if err := validateRating("deliveryRating", input.DeliveryRating); err != nil {
		return nil, err
	}

	orderID, err := uuid.Parse(orderRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, "Order not found")
	}
	order, err := s.orders.FindForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if err := s.checkEligibility(order, requestType); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing request")
	}
	if exists {
		return nil, duplicateError()
	}

	images, err := s.collectMedia(ctx, media.FolderReturnImages, input.Images, input.ImageFiles)
	if err != nil {
		return nil, err
	}
	videos, err := s.collectMedia(ctx, media.FolderReturnVideos, input.Videos, input.VideoFiles)
	if err != nil {
		return nil, err
	}

	req := &models.ReturnRequest{
		OrderID:        order.ID,
		UserID:         userID,
		StoreID:        order.StoreID,
		Type:           requestType,
		Reason:         reason,
		Description:    strings.TrimSpace(input.Description),
		Images:         images,
		Videos:         videos,
		Status:         enums.ReturnRequestStatusPending,
		FastProcess:    input.FastProcess,
		ProductRating:  input.ProductRating,
		DeliveryRating: input.DeliveryRating,
		ReviewText:     input.ReviewText,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, req); err != nil {
			if pkgdb.IsUniqueViolation(err, uniqueOrderConstraint) || pkgdb.IsUniqueViolation(err, sqliteOrderConstraint) {
				return duplicateError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		storeID := req.StoreID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   req.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: userID, StoreID: &storeID},
			Data: payloads.ReturnRequestedEvent{
				RequestID: req.ID,
				OrderID:   req.OrderID,
				StoreID:   req.StoreID,
				UserID:    userID,
				Type:      req.Type,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "request_type", string(requestType))
		s.logg.Info(logCtx, "return_request.created")
	}
	return req, nil
}

// checkEligibility applies the delivery, window and product policy guards in order.
func (s *service) checkEligibility(order *models.Order, requestType enums.ReturnRequestType) error {
	if order.Status != enums.OrderStatusDelivered {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrOrderNotDelivered, "Order must be delivered to request return/replacement")
	}

	days := DaysSinceDelivery(order.UpdatedAt, s.now())
	if requestType == enums.ReturnRequestTypeReplacement {
		if days > replacementWindowDays {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrWindowExpired, "Replacement window has expired (15 days from delivery)")
		}
	} else if days > returnWindowDays {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrWindowExpired, "Return window has expired (7 days from delivery)")
	}

	var blocked []string
	for _, item := range order.Items {
		if item.Product == nil {
			continue
		}
		allowed := item.Product.AllowReturn
		if requestType == enums.ReturnRequestTypeReplacement {
			allowed = item.Product.AllowReplacement
		}
		if !allowed {
			blocked = append(blocked, item.Product.Name)
		}
	}
	if len(blocked) > 0 {
		msg := fmt.Sprintf("The following products do not allow %s: %s", strings.ToLower(string(requestType)), strings.Join(blocked, ", "))
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrProductNotEligible, msg).WithDetails(map[string]any{"products": blocked})
	}
	return nil
}

func (s *service) collectMedia(ctx context.Context, folder media.Folder, hosted []string, files []media.File) ([]string, error) {
	urls := make([]string, 0, len(hosted)+len(files))
	for _, u := range hosted {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(files) == 0 {
		return urls, nil
	}
	uploaded, err := s.media.UploadAll(ctx, folder, files)
	if err != nil {
		return nil, err
	}
	return append(urls, uploaded...), nil
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}
	return rows, nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.ReturnRequest, error) {
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store return requests")
	}
	return rows, nil
}

func (s *service) UpdateStatus(ctx context.Context, storeID, requestID uuid.UUID, status string) (*models.ReturnRequest, error) {
	raw := strings.ToUpper(strings.TrimSpace(status))
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Status is required")
	}
	parsed, err := enums.ParseReturnRequestStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	var updated *models.ReturnRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrRequestNotFound, "Request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
		}
		if req.StoreID != storeID {
			return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrNotRequestOwner, "not authorized")
		}
		now := s.now().UTC()
		if err := repo.UpdateStatus(ctx, req.ID, parsed, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}
		req.Status = parsed
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DaysSinceDelivery counts whole days between the order's last update and now.
func DaysSinceDelivery(deliveredAt, now time.Time) int {
	if now.Before(deliveredAt) {
		return 0
	}
	return int(now.Sub(deliveredAt) / (24 * time.Hour))
}

func validateRating(field string, rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < 1 || *rating > 5 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between 1 and 5", field)
	}
	return nil
}

func duplicateError() error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrDuplicateReturnRequest, "Return/replacement request already exists for this order")
}
