package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// ListFilter narrows coupon listings. A nil StoreID with MarketplaceOnly
// returns coupons not owned by any store.
type ListFilter struct {
	StoreID         *uuid.UUID
	MarketplaceOnly bool
	PublicOnly      bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	Save(ctx context.Context, coupon *models.Coupon) error
	List(ctx context.Context, filter ListFilter) ([]models.Coupon, error)
	Delete(ctx context.Context, code string) (int64, error)
	IncrementUsage(ctx context.Context, code string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
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

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Save(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Coupon, error) {
	query := r.db.WithContext(ctx).Model(&models.Coupon{})
	switch {
	case filter.StoreID != nil:
		query = query.Where("store_id = ?", *filter.StoreID)
	case filter.MarketplaceOnly:
		query = query.Where("store_id IS NULL")
	}
	if filter.PublicOnly {
		query = query.Where("is_public = ?", true)
	}

	var coupons []models.Coupon
	if err := query.Order("created_at DESC").Order("code ASC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *repository) Delete(ctx context.Context, code string) (int64, error) {
	res := r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Coupon{})
	return res.RowsAffected, res.Error
}

// IncrementUsage bumps used_count with a single atomic update.
func (r *repository) IncrementUsage(ctx context.Context, code string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Coupon{})
	return res.RowsAffected, res.Error
}
