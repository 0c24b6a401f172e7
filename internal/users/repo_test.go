package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
)

func TestEnsureExistsIsIdempotent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.EnsureExists(ctx, "uid-1", "Ana", "ana@example.com"))
	require.NoError(t, repo.EnsureExists(ctx, "uid-1", "Changed", "changed@example.com"))

	user, err := repo.FindByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestUpdateCartRoundTrip(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	require.NoError(t, repo.EnsureExists(ctx, "uid-1", "Ana", "ana@example.com"))

	rows, err := repo.UpdateCart(ctx, "uid-1", map[string]int{"p1": 2})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	user, err := repo.FindByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 2}, user.Cart)

	_, err = repo.UpdateCart(ctx, "uid-1", nil)
	require.NoError(t, err)
	user, err = repo.FindByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Empty(t, user.Cart)
}
