package shipping

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

func TestSettingsRepositoryFallsBackToDefault(t *testing.T) {
	repo := NewSettingsRepository(dbtest.Open(t))

	setting, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultSetting().ShippingType, setting.ShippingType)
	assert.True(t, setting.FlatRate.Equal(decimal.NewFromInt(5)))
}

func TestSettingsRepositoryReadsStoredRow(t *testing.T) {
	conn := dbtest.Open(t)
	stored := DefaultSetting()
	stored.ShippingType = enums.ShippingTypePerItem
	stored.MaxItemFee = decimal.NewNullDecimal(decimal.NewFromInt(10))
	require.NoError(t, conn.Create(&stored).Error)

	setting, err := NewSettingsRepository(conn).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enums.ShippingTypePerItem, setting.ShippingType)
	require.True(t, setting.MaxItemFee.Valid)
	assert.True(t, setting.MaxItemFee.Decimal.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, models.DefaultShippingSettingID, setting.ID)
}
