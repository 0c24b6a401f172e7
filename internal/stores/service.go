package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type storeRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Store, error)
}

// Service resolves seller storefronts.
type Service struct {
	repo storeRepository
}

func NewService(repo storeRepository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &Service{repo: repo}, nil
}

// ResolveSellerStore returns the id of the approved, active store owned by userID.
func (s *Service) ResolveSellerStore(ctx context.Context, userID string) (uuid.UUID, error) {
	store, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "Store not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.Status != enums.StoreStatusApproved || !store.IsActive {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "Store is not approved or inactive")
	}
	return store.ID, nil
}
