package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// ListQuery scopes an order listing to a store or a user.
type ListQuery struct {
	StoreID *uuid.UUID
	UserID  string
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindForStore(ctx context.Context, id, storeID uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, id uuid.UUID, userID string) (*models.Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountByGuestEmail(ctx context.Context, email string) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	MarkPaid(ctx context.Context, ids []uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its Items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindForStore(ctx context.Context, id, storeID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND store_id = ?", id, storeID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUser loads an order owned by userID with each item's product.
func (r *repository) FindForUser(ctx context.Context, id uuid.UUID, userID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	if len(ids) == 0 {
		return rows, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns newest-first orders. User listings hide unpaid hosted-checkout orders.
func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Address")

	if query.StoreID != nil {
		q = q.Where("store_id = ?", *query.StoreID)
	}
	if query.UserID != "" {
		q = q.Where("user_id = ?", query.UserID).
			Where("payment_method = ? OR is_paid = ?", enums.PaymentMethodCOD, true)
	}

	var rows []models.Order
	err := q.Scopes(pagination.NewestFirst(query.Cursor, query.Limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *repository) CountByGuestEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("is_guest = ? AND lower(guest_email) = lower(?)", true, email).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// MarkPaid flags unpaid orders as paid and reports how many changed.
func (r *repository) MarkPaid(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND is_paid = ?", ids, false).
		Updates(map[string]any{"is_paid": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// Delete removes the order and its line items.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}
