// Package cart keeps a registered buyer's cart as a productId to quantity map.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	EnsureExists(ctx context.Context, id, name, email string) error
	UpdateCart(ctx context.Context, id string, cart map[string]int) (int64, error)
}

type Service interface {
	Get(ctx context.Context, userID string) (map[string]int, error)
	Replace(ctx context.Context, owner identity.Claims, items map[string]int) (map[string]int, error)
	Clear(ctx context.Context, userID string) error
}

type service struct {
	users userStore
}

func NewService(users userStore) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{users: users}, nil
}

func (s *service) Get(ctx context.Context, userID string) (map[string]int, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]int{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if user.Cart == nil {
		return map[string]int{}, nil
	}
	return user.Cart, nil
}

// Replace stores items as the whole cart. Zero quantities drop the product.
func (s *service) Replace(ctx context.Context, owner identity.Claims, items map[string]int) (map[string]int, error) {
	cleaned := make(map[string]int, len(items))
	for productID, qty := range items {
		if _, err := uuid.Parse(productID); err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid product id %q", productID)
		}
		if qty < 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for %s must not be negative", productID)
		}
		if qty > 0 {
			cleaned[productID] = qty
		}
	}

	if err := s.users.EnsureExists(ctx, owner.UserID, owner.Name, owner.Email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure user")
	}
	if _, err := s.users.UpdateCart(ctx, owner.UserID, cleaned); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
	}
	return cleaned, nil
}

func (s *service) Clear(ctx context.Context, userID string) error {
	if _, err := s.users.UpdateCart(ctx, userID, map[string]int{}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
