package guests

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// Repository persists guest identities keyed by email.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert creates the guest or refreshes name, phone and the conversion token.
// Any previously issued token stops matching.
func (r *Repository) Upsert(ctx context.Context, guest *models.GuestUser) error {
	guest.Email = strings.TrimSpace(guest.Email)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "convert_token_digest", "token_expiry", "updated_at"}),
		}).
		Create(guest).Error
}

func (r *Repository) FindByTokenDigest(ctx context.Context, digest string) (*models.GuestUser, error) {
	var guest models.GuestUser
	if err := r.db.WithContext(ctx).Where("convert_token_digest = ?", digest).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.GuestUser, error) {
	var guest models.GuestUser
	if err := r.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// MarkConverted clears the token and flags the account as created. It reports
// false when another request converted the guest first.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GuestUser{}).
		Where("id = ? AND account_created = ?", id, false).
		Updates(map[string]any{
			"account_created":      true,
			"convert_token_digest": nil,
			"updated_at":           time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}
