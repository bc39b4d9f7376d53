package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"
	"inkwell/internal/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPSweeperSweepOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "sweep_target")
	clock := &fakeClock{now: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)}
	tokenSvc := NewTokenService(
		tokens.NewLinkSigner([]byte("s"), time.Hour),
		tokens.NewOTPGenerator(5*time.Minute),
		repository.NewOTPRepository(db),
		repository.NewUserRepository(db),
	).WithClock(clock.Now)

	stale, err := tokenSvc.IssueOTP(context.Background(), user)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	fresh, err := tokenSvc.IssueOTP(context.Background(), user)
	require.NoError(t, err)

	sweeper := NewOTPSweeper(tokenSvc, time.Minute)
	n, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []models.OTPToken
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, fresh.ID, left[0].ID)
	assert.NotEqual(t, stale.ID, left[0].ID)
}

func TestOTPSweeperRunStopsWithContext(t *testing.T) {
	db := testutil.NewTestDB(t)
	tokenSvc := NewTokenService(
		tokens.NewLinkSigner([]byte("s"), time.Hour),
		tokens.NewOTPGenerator(5*time.Minute),
		repository.NewOTPRepository(db),
		repository.NewUserRepository(db),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewOTPSweeper(tokenSvc, 10*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	// A disabled sweeper returns immediately.
	NewOTPSweeper(tokenSvc, 0).Run(context.Background())
}
