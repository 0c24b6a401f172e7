package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type couponResponse struct {
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountType string          `json:"discountType"`
	ForNewUser   bool            `json:"forNewUser"`
	ForMember    bool            `json:"forMember"`
	IsPublic     bool            `json:"isPublic"`
	UsageLimit   *int            `json:"usageLimit"`
	UsedCount    int             `json:"usedCount"`
	StoreID      *uuid.UUID      `json:"storeId,omitempty"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func newCouponResponse(c models.Coupon) couponResponse {
	return couponResponse{
		Code:         c.Code,
		Description:  c.Description,
		Discount:     c.Discount,
		DiscountType: string(c.DiscountType),
		ForNewUser:   c.ForNewUser,
		ForMember:    c.ForMember,
		IsPublic:     c.IsPublic,
		UsageLimit:   c.UsageLimit,
		UsedCount:    c.UsedCount,
		StoreID:      c.StoreID,
		ExpiresAt:    c.ExpiresAt,
		CreatedAt:    c.CreatedAt,
	}
}

func newCouponResponses(rows []models.Coupon) []couponResponse {
	out := make([]couponResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newCouponResponse(row))
	}
	return out
}

type couponPayload struct {
	Code         string          `json:"code" validate:"required"`
	Description  string          `json:"description"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountType string          `json:"discountType" validate:"required"`
	ForNewUser   bool            `json:"forNewUser"`
	ForMember    bool            `json:"forMember"`
	IsPublic     bool            `json:"isPublic"`
	UsageLimit   *int            `json:"usageLimit"`
	ExpiresAt    time.Time       `json:"expiresAt"`
}

type createCouponRequest struct {
	Coupon couponPayload `json:"coupon"`
}

func (p couponPayload) toInput(storeID *uuid.UUID) (coupons.CreateInput, error) {
	discountType, err := enums.ParseDiscountType(strings.ToLower(strings.TrimSpace(p.DiscountType)))
	if err != nil {
		return coupons.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discountType")
	}
	return coupons.CreateInput{
		Code:         p.Code,
		Description:  p.Description,
		Discount:     p.Discount,
		DiscountType: discountType,
		ForNewUser:   p.ForNewUser,
		ForMember:    p.ForMember,
		IsPublic:     p.IsPublic,
		UsageLimit:   p.UsageLimit,
		ExpiresAt:    p.ExpiresAt,
		StoreID:      storeID,
	}, nil
}

// AdminCouponList returns every coupon.
func AdminCouponList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		rows, err := svc.List(ctx, coupons.ListFilter{})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": newCouponResponses(rows)})
	}
}

// AdminCouponCreate adds a marketplace-wide coupon.
func AdminCouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := payload.Coupon.toInput(nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if _, err := svc.Create(ctx, input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"message": "Coupon added successfully"})
	}
}

// AdminCouponDelete removes the coupon named by the code query parameter.
func AdminCouponDelete(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}

		if err := svc.Delete(ctx, code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "Coupon deleted successfully"})
	}
}

// StoreCouponList returns the coupons owned by the caller's store.
func StoreCouponList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.List(ctx, coupons.ListFilter{StoreID: &storeID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": newCouponResponses(rows)})
	}
}

// StoreCouponCreate adds a coupon scoped to the caller's store.
func StoreCouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := payload.Coupon.toInput(&storeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"coupon": newCouponResponse(*created)})
	}
}

type updateCouponRequest struct {
	Description  *string          `json:"description"`
	Discount     *decimal.Decimal `json:"discount"`
	DiscountType *string          `json:"discountType"`
	ForNewUser   *bool            `json:"forNewUser"`
	ForMember    *bool            `json:"forMember"`
	IsPublic     *bool            `json:"isPublic"`
	UsageLimit   *int             `json:"usageLimit"`
	ExpiresAt    *time.Time       `json:"expiresAt"`
}

// StoreCouponUpdate changes the supplied fields of one of the store's coupons.
func StoreCouponUpdate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input := coupons.UpdateInput{
			Description: payload.Description,
			Discount:    payload.Discount,
			ForNewUser:  payload.ForNewUser,
			ForMember:   payload.ForMember,
			IsPublic:    payload.IsPublic,
			UsageLimit:  payload.UsageLimit,
			ExpiresAt:   payload.ExpiresAt,
		}
		if payload.DiscountType != nil {
			discountType, err := enums.ParseDiscountType(strings.ToLower(strings.TrimSpace(*payload.DiscountType)))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discountType"))
				return
			}
			input.DiscountType = &discountType
		}

		updated, err := svc.UpdateForStore(ctx, storeID, chi.URLParam(r, "code"), input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupon": newCouponResponse(*updated)})
	}
}

// StoreCouponDelete removes one of the store's coupons.
func StoreCouponDelete(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteForStore(ctx, storeID, chi.URLParam(r, "code")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "Coupon deleted successfully"})
	}
}
