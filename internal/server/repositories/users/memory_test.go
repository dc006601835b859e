package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.Create(ctx, &models.User{UserName: "alice", Salt: "beef", Verifier: "abc"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	got.Salt = "changed"
	again, err := r.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "beef", again.Salt, "callers must not alias stored records")
}

func TestMemoryRepository_Duplicate(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{UserName: "alice"})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.User{UserName: "alice"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	_, err := NewMemoryRepository().GetUserByLogin(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryRepository().GetUserByLogin(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)
}
