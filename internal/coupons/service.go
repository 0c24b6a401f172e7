package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	pkgdb "github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type EvaluateInput struct {
	Code           string
	Identity       identity.Identity
	HasPriorOrders bool
}

type CreateInput struct {
	Code         string
	Description  string
	Discount     decimal.Decimal
	DiscountType enums.DiscountType
	ForNewUser   bool
	ForMember    bool
	IsPublic     bool
	UsageLimit   *int
	ExpiresAt    time.Time
	StoreID      *uuid.UUID
}

// UpdateInput carries the fields a store may change; nil fields are left as is.
type UpdateInput struct {
	Description  *string
	Discount     *decimal.Decimal
	DiscountType *enums.DiscountType
	ForNewUser   *bool
	ForMember    *bool
	IsPublic     *bool
	UsageLimit   *int
	ExpiresAt    *time.Time
}

type Service interface {
	Evaluate(ctx context.Context, input EvaluateInput) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	List(ctx context.Context, filter ListFilter) ([]models.Coupon, error)
	UpdateForStore(ctx context.Context, storeID uuid.UUID, code string, input UpdateInput) (*models.Coupon, error)
	Delete(ctx context.Context, code string) error
	DeleteForStore(ctx context.Context, storeID uuid.UUID, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ServiceParams struct {
	Repo              Repository
	EnforceUsageLimit bool
	Now               func() time.Time
}

type service struct {
	repo              Repository
	enforceUsageLimit bool
	now               func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:              params.Repo,
		enforceUsageLimit: params.EnforceUsageLimit,
		now:               now,
	}, nil
}

// Evaluate resolves a checkout coupon and checks it against the buyer. An
// empty code yields a nil coupon and no error.
func (s *service) Evaluate(ctx context.Context, input EvaluateInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, nil
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrCouponNotFound, "Coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePolicy, ErrCouponExpired, "Coupon has expired")
	}
	if coupon.ForNewUser && input.HasPriorOrders {
		return nil, pkgerrors.Wrap(pkgerrors.CodePolicy, ErrCouponRestrictedToNewUsers, "Coupon valid for new users")
	}
	if coupon.ForMember && (input.Identity == nil || !input.Identity.IsMember()) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePolicy, ErrCouponRestrictedToMembers, "Coupon valid for members only")
	}
	if s.enforceUsageLimit && coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.Wrap(pkgerrors.CodePolicy, ErrCouponUsageLimitReached, "Coupon usage limit reached")
	}
	return coupon, nil
}

// IncrementUsage records one checkout's use of the coupon inside tx.
func (s *service) IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error {
	rows, err := s.repo.WithTx(tx).IncrementUsage(ctx, NormalizeCode(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if rows == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrCouponNotFound, "coupon no longer exists")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if err := validateTerms(input.Discount, input.DiscountType); err != nil {
		return nil, err
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usageLimit must be positive")
	}
	if !input.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiresAt must be in the future")
	}

	coupon := &models.Coupon{
		Code:         code,
		Description:  strings.TrimSpace(input.Description),
		Discount:     input.Discount,
		DiscountType: input.DiscountType,
		ForNewUser:   input.ForNewUser,
		ForMember:    input.ForMember,
		IsPublic:     input.IsPublic,
		UsageLimit:   input.UsageLimit,
		ExpiresAt:    input.ExpiresAt.UTC(),
		StoreID:      input.StoreID,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrCouponExists, "Coupon already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Coupon, error) {
	coupons, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return coupons, nil
}

func (s *service) UpdateForStore(ctx context.Context, storeID uuid.UUID, code string, input UpdateInput) (*models.Coupon, error) {
	coupon, err := s.findOwned(ctx, storeID, code)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		coupon.Description = strings.TrimSpace(*input.Description)
	}
	if input.Discount != nil {
		coupon.Discount = *input.Discount
	}
	if input.DiscountType != nil {
		coupon.DiscountType = *input.DiscountType
	}
	if input.ForNewUser != nil {
		coupon.ForNewUser = *input.ForNewUser
	}
	if input.ForMember != nil {
		coupon.ForMember = *input.ForMember
	}
	if input.IsPublic != nil {
		coupon.IsPublic = *input.IsPublic
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usageLimit must be positive")
		}
		coupon.UsageLimit = input.UsageLimit
	}
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiresAt must be in the future")
		}
		coupon.ExpiresAt = input.ExpiresAt.UTC()
	}
	if err := validateTerms(coupon.Discount, coupon.DiscountType); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	rows, err := s.repo.Delete(ctx, NormalizeCode(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if rows == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrCouponNotFound, "Coupon not found")
	}
	return nil
}

func (s *service) DeleteForStore(ctx context.Context, storeID uuid.UUID, code string) error {
	coupon, err := s.findOwned(ctx, storeID, code)
	if err != nil {
		return err
	}
	return s.Delete(ctx, coupon.Code)
}

func (s *service) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}

func (s *service) findOwned(ctx context.Context, storeID uuid.UUID, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrCouponNotFound, "Coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon.StoreID == nil || *coupon.StoreID != storeID {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrCouponNotFound, "Coupon not found")
	}
	return coupon, nil
}

func validateTerms(discount decimal.Decimal, discountType enums.DiscountType) error {
	if !discountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discountType must be percentage or fixed")
	}
	if !discount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be greater than zero")
	}
	if discountType == enums.DiscountTypePercentage && discount.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	return nil
}
