package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

func TestFindByIDs(t *testing.T) {
	conn := dbtest.Open(t)
	storeID := uuid.New()
	keep := models.Product{StoreID: storeID, Name: "Lamp", Price: decimal.RequireFromString("19.99"), Images: []string{"https://cdn/x.png"}, InStock: true}
	other := models.Product{StoreID: storeID, Name: "Rug", Price: decimal.NewFromInt(80), InStock: true}
	require.NoError(t, conn.Create(&keep).Error)
	require.NoError(t, conn.Create(&other).Error)

	repo := NewRepository(conn)
	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{keep.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[keep.ID].Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, []string{"https://cdn/x.png"}, []string(found[keep.ID].Images))
	assert.False(t, found[keep.ID].AllowReturn)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
