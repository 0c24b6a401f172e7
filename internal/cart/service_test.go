package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/users"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestReplaceGetClear(t *testing.T) {
	svc, err := NewService(users.NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	ctx := context.Background()
	owner := identity.Claims{UserID: "uid-1", Name: "Ana", Email: "ana@example.com"}

	empty, err := svc.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	p1, p2 := uuid.NewString(), uuid.NewString()
	stored, err := svc.Replace(ctx, owner, map[string]int{p1: 2, p2: 0})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{p1: 2}, stored)

	got, err := svc.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{p1: 2}, got)

	require.NoError(t, svc.Clear(ctx, "uid-1"))
	got, err = svc.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceRejectsBadInput(t *testing.T) {
	svc, err := NewService(users.NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	owner := identity.Claims{UserID: "uid-1"}

	_, err = svc.Replace(context.Background(), owner, map[string]int{"not-a-uuid": 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Replace(context.Background(), owner, map[string]int{uuid.NewString(): -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
