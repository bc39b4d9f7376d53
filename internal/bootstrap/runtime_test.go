package bootstrap

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSuperuser(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without an email", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		user, err := EnsureSuperuser(ctx, &config.Config{}, db)
		require.NoError(t, err)
		assert.Nil(t, user)

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("requires a password", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		_, err := EnsureSuperuser(ctx, &config.Config{SuperuserEmail: "root@example.com"}, db)
		assert.Error(t, err)
	})

	t.Run("creates once", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		cfg := &config.Config{
			SuperuserEmail:    "editor@Example.com",
			SuperuserPassword: "s3cret",
			AvatarDir:         t.TempDir(),
		}

		first, err := EnsureSuperuser(ctx, cfg, db)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "editor", first.Username)
		assert.Equal(t, "editor@example.com", first.Email)
		assert.True(t, first.IsSuperuser)
		assert.True(t, first.IsStaff)
		assert.True(t, first.IsEmailVerified)

		again, err := EnsureSuperuser(ctx, cfg, db)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)

	require.NoError(t, seedIfEmpty(ctx, db))
	var blogs int64
	require.NoError(t, db.Model(&models.Blog{}).Count(&blogs).Error)
	require.NotZero(t, blogs)

	require.NoError(t, seedIfEmpty(ctx, db))
	var after int64
	require.NoError(t, db.Model(&models.Blog{}).Count(&after).Error)
	assert.Equal(t, blogs, after, "a populated database is left alone")
}
