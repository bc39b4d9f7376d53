package service

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/tokens"
	"inkwell/internal/validation"
)

// TokenService issues and checks emailed credentials: signed links for email
// verification and password reset, and stored one-time reset codes.
type TokenService struct {
	links    *tokens.LinkSigner
	otps     *tokens.OTPGenerator
	otpRepo  repository.OTPRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewTokenService returns a new TokenService.
func NewTokenService(links *tokens.LinkSigner, otps *tokens.OTPGenerator, otpRepo repository.OTPRepository, userRepo repository.UserRepository) *TokenService {
	return &TokenService{
		links:    links,
		otps:     otps,
		otpRepo:  otpRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// WithClock replaces the time source of the service and its generators.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	s.links.WithClock(now)
	s.otps.WithClock(now)
	return s
}

// OTPTTL is how long an issued reset code stays usable.
func (s *TokenService) OTPTTL() time.Duration {
	return s.otps.TTL()
}

// IssueLink signs a link token for user and returns it with the encoded uid.
func (s *TokenService) IssueLink(user *models.User, purpose tokens.Purpose) (uid, token string, err error) {
	token, err = s.links.Issue(user, purpose)
	if err != nil {
		return "", "", models.NewInternalError(err)
	}
	return tokens.EncodeUID(user.ID), token, nil
}

// VerifyLink resolves uid to an account and checks token against its current state.
func (s *TokenService) VerifyLink(ctx context.Context, uid, token string, purpose tokens.Purpose) (*models.User, error) {
	id, err := tokens.DecodeUID(uid)
	if err != nil {
		return nil, models.NewInvalidTokenError("Invalid or broken link")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewInvalidTokenError("Invalid or broken link")
		}
		return nil, err
	}

	switch err := s.links.Verify(user, purpose, token); {
	case errors.Is(err, tokens.ErrExpired):
		return nil, models.NewExpiredTokenError("This link has expired")
	case err != nil:
		return nil, models.NewInvalidTokenError("Invalid or broken link")
	}
	return user, nil
}

// IssueOTP persists a fresh reset code for user.
func (s *TokenService) IssueOTP(ctx context.Context, user *models.User) (*models.OTPToken, error) {
	code, expiresAt, err := s.otps.Generate()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	token := &models.OTPToken{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.otpRepo.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// VerifyOTP finds the code issued to the account registered under email. A
// code that belongs to a different account is indistinguishable from an
// unknown code.
func (s *TokenService) VerifyOTP(ctx context.Context, code, email string) (*models.OTPToken, *models.User, error) {
	if len(code) != 6 || !isDigits(code) {
		return nil, nil, models.NewInvalidTokenError("Invalid code")
	}
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewInvalidTokenError("Invalid code")
	}

	token, err := s.otpRepo.FindLatest(ctx, user.ID, code)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case token == nil:
		return nil, nil, models.NewInvalidTokenError("Invalid code")
	case token.IsConsumed():
		return nil, nil, models.NewInvalidTokenError("This code has already been used")
	case token.IsExpired(s.now()):
		return nil, nil, models.NewExpiredTokenError("This code has expired")
	}
	return token, user, nil
}

// ConsumeOTP marks token used. It fails if another request consumed it first.
func (s *TokenService) ConsumeOTP(ctx context.Context, token *models.OTPToken) error {
	at := s.now().UTC()
	if err := s.otpRepo.MarkConsumed(ctx, token.ID, at); err != nil {
		return err
	}
	token.ConsumedAt = &at
	return nil
}

// SweepExpiredOTP deletes expired and consumed codes and returns how many went.
func (s *TokenService) SweepExpiredOTP(ctx context.Context) (int64, error) {
	n, err := s.otpRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	observability.OTPSwept.Add(float64(n))
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
