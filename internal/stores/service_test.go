package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestResolveSellerStore(t *testing.T) {
	conn := dbtest.Open(t)
	approved := models.Store{UserID: "seller-1", Name: "One", Username: "one", Email: "one@example.com", Status: enums.StoreStatusApproved, IsActive: true}
	pending := models.Store{UserID: "seller-2", Name: "Two", Username: "two", Email: "two@example.com", Status: enums.StoreStatusPending, IsActive: true}
	inactive := models.Store{UserID: "seller-3", Name: "Three", Username: "three", Email: "three@example.com", Status: enums.StoreStatusApproved}
	require.NoError(t, conn.Create(&approved).Error)
	require.NoError(t, conn.Create(&pending).Error)
	require.NoError(t, conn.Create(&inactive).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := svc.ResolveSellerStore(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, approved.ID, id)

	for _, userID := range []string{"seller-2", "seller-3"} {
		id, err := svc.ResolveSellerStore(ctx, userID)
		assert.Equal(t, uuid.Nil, id)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), userID)
	}

	_, err = svc.ResolveSellerStore(ctx, "nobody")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	store, err := NewRepository(conn).FindByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", store.Username)
}
