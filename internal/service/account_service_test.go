package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"
	"inkwell/internal/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	verifyLinkRE = regexp.MustCompile(`/account/verify/([A-Za-z0-9_-]+)/([A-Za-z0-9_.-]+)`)
	resetLinkRE  = regexp.MustCompile(`/account/reset/([A-Za-z0-9_-]+)/([A-Za-z0-9_.-]+)`)
)

type accountScenario struct {
	db       *gorm.DB
	users    repository.UserRepository
	accounts *AccountService
	mailer   *recordingMailer
	clock    *fakeClock
}

func newAccountScenario(t *testing.T, secret string) *accountScenario {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	identity := NewIdentityService(users, nil)
	identity.cost = bcrypt.MinCost

	clock := &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	tokenSvc := NewTokenService(
		tokens.NewLinkSigner([]byte(secret), 72*time.Hour),
		tokens.NewOTPGenerator(5*time.Minute),
		repository.NewOTPRepository(db),
		users,
	)
	mailer := &recordingMailer{}
	accounts := NewAccountService(identity, tokenSvc, users, mailer, "http://inkwell.test/").WithClock(clock.Now)
	return &accountScenario{db: db, users: users, accounts: accounts, mailer: mailer, clock: clock}
}

func (s *accountScenario) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, notice, err := s.accounts.Register(context.Background(), RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		Password1: "first-pass",
		Password2: "first-pass",
	})
	require.NoError(t, err)
	assert.Empty(t, notice.Warning)
	return user
}

func (s *accountScenario) lastLink(t *testing.T, re *regexp.Regexp) (string, string) {
	t.Helper()
	msg, ok := s.mailer.last()
	require.True(t, ok, "no email was sent")
	m := re.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 3, "no link in %q", msg.HTML)
	return m[1], m[2]
}

func (s *accountScenario) latestOTP(t *testing.T, user *models.User) string {
	t.Helper()
	var token models.OTPToken
	require.NoError(t, s.db.Where("user_id = ?", user.ID).Order("created_at DESC").First(&token).Error)
	return token.Code
}

func TestAccountRegisterVerifyLogin(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()

	user := s.register(t, "new_writer")
	assert.True(t, user.IsActive)
	assert.False(t, user.IsEmailVerified)
	require.Equal(t, 1, s.mailer.count())
	uid, token := s.lastLink(t, verifyLinkRE)

	_, err := s.accounts.Login(ctx, "new_writer@example.com", "first-pass")
	assert.True(t, models.HasCode(err, models.CodeEmailNotVerified))
	assert.Equal(t, 2, s.mailer.count(), "login should resend the verification email")

	verified, err := s.accounts.VerifyAccount(ctx, uid, token)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)

	_, err = s.accounts.VerifyAccount(ctx, uid, token)
	assert.True(t, models.HasCode(err, models.CodeInvalidToken), "a used link must not verify twice")

	loggedIn, err := s.accounts.Login(ctx, "new_writer@example.com", "first-pass")
	require.NoError(t, err)
	require.NotNil(t, loggedIn.LastLogin)
	assert.True(t, s.clock.Now().Equal(*loggedIn.LastLogin))
}

func TestAccountLoginWrongPassword(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	s.register(t, "careful_one")

	_, err := s.accounts.Login(context.Background(), "careful_one@example.com", "not-it")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	_, err = s.accounts.Login(context.Background(), "nobody@example.com", "first-pass")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAccountRegisterValidation(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	s.register(t, "first_user")

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"password mismatch", RegisterInput{Email: "x@example.com", Username: "xavier", Password1: "a", Password2: "b"}, "password2"},
		{"duplicate email", RegisterInput{Email: "first_user@example.com", Username: "someone", Password1: "a", Password2: "a"}, "email"},
		{"duplicate username", RegisterInput{Email: "y@example.com", Username: "first_user", Password1: "a", Password2: "a"}, "username"},
		{"username too short", RegisterInput{Email: "z@example.com", Username: "abc", Password1: "a", Password2: "a"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.accounts.Register(context.Background(), tt.in)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	var n int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAccountRegisterDeliveryFailureIsAWarning(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	s.mailer.err = errors.New("smtp unavailable")

	user, notice, err := s.accounts.Register(context.Background(), RegisterInput{
		Email: "offline@example.com", Username: "offline", Password1: "pw", Password2: "pw",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, notice.Warning)

	stored, err := s.users.GetByEmail(context.Background(), "offline@example.com")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestAccountRegisterRollsBackWithoutLink(t *testing.T) {
	s := newAccountScenario(t, "")

	_, _, err := s.accounts.Register(context.Background(), RegisterInput{
		Email: "ghost@example.com", Username: "ghostly", Password1: "pw", Password2: "pw",
	})
	assert.True(t, models.HasCode(err, models.CodeInternal))

	var n int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, s.db.Model(&models.Profile{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, s.mailer.count())
}

func TestAccountDeactivateThenLoginReactivates(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	user := testutil.CreateUser(t, s.db, "sleeper")

	require.NoError(t, s.accounts.Deactivate(ctx, user.ID))
	stored, err := s.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	loggedIn, err := s.accounts.Login(ctx, "sleeper@example.com", "sleeper-pass")
	require.NoError(t, err)
	assert.True(t, loggedIn.IsActive)
}

func TestAccountReactivationHappensBeforeVerificationCheck(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	user := testutil.CreateUser(t, s.db, "dormant", testutil.Unverified(), testutil.Inactive())

	_, err := s.accounts.Login(ctx, "dormant@example.com", "dormant-pass")
	assert.True(t, models.HasCode(err, models.CodeEmailNotVerified))

	stored, err := s.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsEmailVerified)
	assert.Equal(t, 1, s.mailer.count())
}

func TestAccountChangePassword(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	user := testutil.CreateUser(t, s.db, "changer")

	err := s.accounts.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "wrong", Password1: "n", Password2: "n"})
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "old_password", appErr.Field)

	err = s.accounts.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "changer-pass", Password1: "n1", Password2: "n2"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "password2", appErr.Field)

	require.NoError(t, s.accounts.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "changer-pass", Password1: "p1", Password2: "p1"}))
	_, err = s.accounts.Login(ctx, "changer@example.com", "p1")
	assert.NoError(t, err)
}

func TestAccountPasswordResetLink(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	testutil.CreateUser(t, s.db, "forgetful")

	_, err := s.accounts.RequestPasswordResetLink(ctx, "missing@example.com")
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "This email does not exist in our database.", appErr.Message)

	notice, err := s.accounts.RequestPasswordResetLink(ctx, "forgetful@example.com")
	require.NoError(t, err)
	assert.Empty(t, notice.Warning)
	uid, token := s.lastLink(t, resetLinkRE)

	in := ResetWithLinkInput{UID: uid, Token: token, Password1: "fresh", Password2: "fresh"}
	require.NoError(t, s.accounts.ConfirmPasswordResetLink(ctx, in))
	_, err = s.accounts.Login(ctx, "forgetful@example.com", "fresh")
	require.NoError(t, err)

	err = s.accounts.ConfirmPasswordResetLink(ctx, in)
	assert.True(t, models.HasCode(err, models.CodeInvalidToken), "reset links are single use")
}

func TestAccountVerificationLinkCannotResetPassword(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	s.register(t, "crossover")
	uid, token := s.lastLink(t, verifyLinkRE)

	err := s.accounts.ConfirmPasswordResetLink(context.Background(), ResetWithLinkInput{
		UID: uid, Token: token, Password1: "x", Password2: "x",
	})
	assert.True(t, models.HasCode(err, models.CodeInvalidToken))
}

func TestAccountPasswordResetOTP(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	owner := testutil.CreateUser(t, s.db, "otp_owner")
	testutil.CreateUser(t, s.db, "bystander")

	_, err := s.accounts.RequestPasswordResetOTP(ctx, "otp_owner@example.com")
	require.NoError(t, err)
	code := s.latestOTP(t, owner)
	msg, _ := s.mailer.last()
	assert.Contains(t, msg.HTML, code)

	t.Run("wrong email", func(t *testing.T) {
		err := s.accounts.ConfirmPasswordResetOTP(ctx, ResetWithOTPInput{
			Email: "bystander@example.com", Code: code, Password1: "hijack", Password2: "hijack",
		})
		assert.True(t, models.HasCode(err, models.CodeInvalidToken))
		_, err = s.accounts.Login(ctx, "bystander@example.com", "bystander-pass")
		assert.NoError(t, err, "another account must never be reset")
	})

	t.Run("wrong code", func(t *testing.T) {
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		err := s.accounts.ConfirmPasswordResetOTP(ctx, ResetWithOTPInput{
			Email: "otp_owner@example.com", Code: wrong, Password1: "x", Password2: "x",
		})
		assert.True(t, models.HasCode(err, models.CodeInvalidToken))
	})

	t.Run("valid once", func(t *testing.T) {
		in := ResetWithOTPInput{Email: "otp_owner@example.com", Code: code, Password1: "renewed", Password2: "renewed"}
		require.NoError(t, s.accounts.ConfirmPasswordResetOTP(ctx, in))
		_, err := s.accounts.Login(ctx, "otp_owner@example.com", "renewed")
		require.NoError(t, err)

		err = s.accounts.ConfirmPasswordResetOTP(ctx, in)
		assert.True(t, models.HasCode(err, models.CodeInvalidToken))
	})
}

func TestAccountPasswordResetOTPExpiresAfterFiveMinutes(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	user := testutil.CreateUser(t, s.db, "slowpoke")

	_, err := s.accounts.RequestPasswordResetOTP(ctx, "slowpoke@example.com")
	require.NoError(t, err)
	code := s.latestOTP(t, user)

	s.clock.Advance(6 * time.Minute)
	err = s.accounts.ConfirmPasswordResetOTP(ctx, ResetWithOTPInput{
		Email: "slowpoke@example.com", Code: code, Password1: "late", Password2: "late",
	})
	assert.True(t, models.HasCode(err, models.CodeExpiredToken))

	_, err = s.accounts.Login(ctx, "slowpoke@example.com", "slowpoke-pass")
	assert.NoError(t, err)
}

func TestAccountDelete(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	user := testutil.CreateUser(t, s.db, "leaving")

	require.NoError(t, s.accounts.Delete(ctx, user.ID))
	_, err := s.accounts.GetAccount(ctx, user.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, err = s.accounts.Login(ctx, "leaving@example.com", "leaving-pass")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAccountSearchUsers(t *testing.T) {
	s := newAccountScenario(t, "test-secret")
	ctx := context.Background()
	me := testutil.CreateUser(t, s.db, "writer_me")
	testutil.CreateUser(t, s.db, "writer_you")
	testutil.CreateUser(t, s.db, "writer_gone", testutil.Inactive())

	found, err := s.accounts.SearchUsers(ctx, me.ID, "WRITER", false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = s.accounts.SearchUsers(ctx, me.ID, "writer", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "writer_you", found[0].Username)
}
