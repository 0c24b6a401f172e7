package shipping

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// DefaultSetting is used until an operator stores a settings row.
func DefaultSetting() models.ShippingSetting {
	return models.ShippingSetting{
		ID:                  models.DefaultShippingSettingID,
		Enabled:             true,
		ShippingType:        enums.ShippingTypeFlatRate,
		FlatRate:            decimal.NewFromInt(5),
		PerItemFee:          decimal.NewFromInt(2),
		FreeShippingMin:     decimal.NewFromInt(499),
		BaseWeight:          decimal.NewFromInt(1),
		BaseWeightFee:       decimal.NewFromInt(5),
		AdditionalWeightFee: decimal.NewFromInt(2),
	}
}

type SettingsRepository interface {
	Get(ctx context.Context) (models.ShippingSetting, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get loads the singleton settings row, falling back to DefaultSetting.
func (r *settingsRepository) Get(ctx context.Context) (models.ShippingSetting, error) {
	var setting models.ShippingSetting
	err := r.db.WithContext(ctx).Where("id = ?", models.DefaultShippingSettingID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultSetting(), nil
	}
	if err != nil {
		return models.ShippingSetting{}, err
	}
	return setting, nil
}
