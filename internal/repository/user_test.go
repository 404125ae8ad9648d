package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
	"github.com/rocketscienceinc/ticroom-backend/internal/entity"
	"github.com/rocketscienceinc/ticroom-backend/internal/repository/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (context.Context, *sqlite.Storage) {
	t.Helper()

	ctx := context.Background()

	storage, err := sqlite.New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, storage.Close())
	})

	require.NoError(t, storage.Init(ctx))

	return ctx, storage
}

func TestUserRepository_Save(t *testing.T) {
	ctx, storage := newTestStorage(t)
	userRepo := NewUserRepository(storage.Connection)

	// Given: a user with a hashed password
	user := &entity.User{Username: "alice", PasswordHash: "$2a$10$hash"}

	// When: Save is called
	err := userRepo.Save(ctx, user)

	// Then: no error should be returned
	require.NoError(t, err)

	// And: saving the same username again violates the primary key
	err = userRepo.Save(ctx, user)
	require.Error(t, err)
}

func TestUserRepository_Find(t *testing.T) {
	t.Run("Find_Success", func(t *testing.T) {
		ctx, storage := newTestStorage(t)
		userRepo := NewUserRepository(storage.Connection)

		// Given: a stored user
		user := &entity.User{Username: "alice", PasswordHash: "$2a$10$hash"}
		require.NoError(t, userRepo.Save(ctx, user))

		// When: Find is called with the existing username
		found, err := userRepo.Find(ctx, "alice")

		// Then: the stored record comes back intact
		require.NoError(t, err)
		assert.Equal(t, user.Username, found.Username)
		assert.Equal(t, user.PasswordHash, found.PasswordHash)
	})

	t.Run("Find_NotFound", func(t *testing.T) {
		ctx, storage := newTestStorage(t)
		userRepo := NewUserRepository(storage.Connection)

		// When: Find is called with an unknown username
		found, err := userRepo.Find(ctx, "nobody")

		// Then: an ErrNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, found)
	})
}
