package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPRepository_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "otp_owner")
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	token := &models.OTPToken{UserID: user.ID, Code: "042817", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Create(ctx, token))

	found, err := repo.FindLatest(ctx, user.ID, "042817")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, token.ID, found.ID)
	assert.False(t, found.IsExpired(now))
	assert.True(t, found.IsExpired(now.Add(6*time.Minute)))

	missing, err := repo.FindLatest(ctx, user.ID, "999999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.MarkConsumed(ctx, token.ID, now))
	err = repo.MarkConsumed(ctx, token.ID, now)
	assert.True(t, models.HasCode(err, models.CodeInvalidToken))

	found, err = repo.FindLatest(ctx, user.ID, "042817")
	require.NoError(t, err)
	assert.True(t, found.IsConsumed())
}

func TestOTPRepository_DeleteExpired(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "otp_sweep")
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	require.NoError(t, repo.Create(ctx, &models.OTPToken{UserID: user.ID, Code: "111111", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.OTPToken{UserID: user.ID, Code: "222222", ExpiresAt: now.Add(time.Hour), ConsumedAt: &used}))
	live := &models.OTPToken{UserID: user.ID, Code: "333333", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, live))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var remaining []models.OTPToken
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, live.ID, remaining[0].ID)
}
