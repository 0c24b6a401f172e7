package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type CreateInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

type addressRepository interface {
	Create(ctx context.Context, addr *models.Address) error
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
}

type userEnsurer interface {
	EnsureExists(ctx context.Context, id, name, email string) error
}

type Service interface {
	Create(ctx context.Context, owner identity.Claims, input CreateInput) (*models.Address, error)
	List(ctx context.Context, userID string) ([]models.Address, error)
}

type service struct {
	repo  addressRepository
	users userEnsurer
}

func NewService(repo addressRepository, users userEnsurer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) Create(ctx context.Context, owner identity.Claims, input CreateInput) (*models.Address, error) {
	if owner.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
	}
	if err := s.users.EnsureExists(ctx, owner.UserID, owner.Name, owner.Email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure user")
	}

	addr := &models.Address{
		UserID:  owner.UserID,
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Street:  strings.TrimSpace(input.Street),
		City:    strings.TrimSpace(input.City),
		State:   strings.TrimSpace(input.State),
		Zip:     strings.TrimSpace(input.Zip),
		Country: strings.TrimSpace(input.Country),
		Phone:   strings.TrimSpace(input.Phone),
	}
	if err := s.repo.Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, userID string) ([]models.Address, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}
