package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type couponExpirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CouponExpiryJobParams struct {
	Logger  *logger.Logger
	Coupons couponExpirer
}

// NewCouponExpiryJob deletes coupons whose expires_at has passed.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	return &couponExpiryJob{
		logg:    params.Logger,
		coupons: params.Coupons,
		now:     time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg    *logger.Logger
	coupons couponExpirer
	now     func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.coupons.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("coupon expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"now":          now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "expired coupons removed")
	return nil
}
