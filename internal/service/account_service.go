package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/mail"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/tokens"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	verifyPath = "/account/verify/"
	resetPath  = "/account/reset/"
)

// AccountService drives the multi-step account workflows: registration,
// verification, login, password changes and resets, deactivation and deletion.
type AccountService struct {
	identity *IdentityService
	tokens   *TokenService
	userRepo repository.UserRepository
	mailer   mail.Mailer
	composer mail.Composer
	siteURL  string
	now      func() time.Time
}

// NewAccountService returns a new AccountService. siteURL prefixes the links
// sent by email.
func NewAccountService(identity *IdentityService, tokenSvc *TokenService, userRepo repository.UserRepository, mailer mail.Mailer, siteURL string) *AccountService {
	return &AccountService{
		identity: identity,
		tokens:   tokenSvc,
		userRepo: userRepo,
		mailer:   mailer,
		siteURL:  strings.TrimRight(siteURL, "/"),
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	s.tokens.WithClock(now)
	return s
}

// Notice reports a side effect that failed without failing the operation.
type Notice struct {
	Warning string `json:"warning,omitempty"`
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email     string
	Username  string
	Name      string
	Password1 string
	Password2 string
}

// Register opens an account and emails a verification link. The account is
// removed again if no link can be issued; a failed delivery only produces a
// warning.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (user *models.User, notice Notice, err error) {
	span, ctx := observability.NewSpan(ctx, "account.register")
	defer func() { span.End(err) }()

	if in.Password1 != in.Password2 {
		return nil, notice, models.NewFieldError("password2", "The two password fields didn't match")
	}
	user, err = s.identity.CreateUser(ctx, CreateUserInput{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: in.Password1,
	})
	if err != nil {
		return nil, notice, err
	}

	uid, token, err := s.tokens.IssueLink(user, tokens.PurposeVerifyEmail)
	if err != nil {
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			middleware.Logger.ErrorContext(ctx, "failed to roll back registration",
				slog.String("user_id", user.ID.String()), slog.String("error", delErr.Error()))
		}
		return nil, notice, err
	}

	observability.RecordAccountEvent("registered")
	middleware.Logger.InfoContext(ctx, "account registered", slog.String("user_id", user.ID.String()))

	msg, err := s.composer.Verification(user.Email, user.Username, s.link(verifyPath, uid, token))
	if err == nil {
		err = s.deliver(ctx, msg)
	}
	if err != nil {
		notice.Warning = "Your account was created but we could not send the verification email. Log in to receive a new link."
	}
	return user, notice, nil
}

// VerifyAccount marks the account behind a verification link verified and active.
func (s *AccountService) VerifyAccount(ctx context.Context, uid, token string) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "account.verify")
	defer func() { span.End(err) }()

	user, err = s.tokens.VerifyLink(ctx, uid, token, tokens.PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}
	user.IsEmailVerified = true
	user.IsActive = true
	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	observability.RecordAccountEvent("verified")
	return user, nil
}

// Login checks credentials. A deactivated account is reactivated once the
// password matches; an unverified account gets a fresh verification email and
// is refused.
func (s *AccountService) Login(ctx context.Context, email, password string) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "account.login")
	defer func() { span.End(err) }()

	user, err = s.identity.Authenticate(ctx, email, password)
	if err != nil {
		observability.RecordAccountEvent("login_failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	if !user.IsActive {
		user.IsActive = true
		if err = s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
		observability.RecordAccountEvent("reactivated")
		middleware.Logger.InfoContext(ctx, "account reactivated on login", slog.String("user_id", user.ID.String()))
	}

	if !user.IsEmailVerified {
		if sendErr := s.sendVerification(ctx, user); sendErr != nil {
			return nil, models.NewEmailNotVerifiedError("Your email is not verified and we could not send a new verification email. Please try again later.")
		}
		return nil, models.NewEmailNotVerifiedError("Your email is not verified. Please check your email for a verification link.")
	}

	return s.StartSession(ctx, user)
}

// StartSession stamps the login time. Outstanding link tokens for the account
// stop working.
func (s *AccountService) StartSession(ctx context.Context, user *models.User) (*models.User, error) {
	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	observability.RecordAccountEvent("login")
	return user, nil
}

// ChangePasswordInput is the authenticated password change form.
type ChangePasswordInput struct {
	OldPassword string
	Password1   string
	Password2   string
}

// ChangePassword requires proof of the current password.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.identity.VerifyCurrentPassword(user, in.OldPassword) {
		return models.NewFieldError("old_password", "Your old password was entered incorrectly")
	}
	if in.Password1 != in.Password2 {
		return models.NewFieldError("password2", "The two password fields didn't match")
	}
	if err := s.identity.SetPassword(ctx, user, in.Password1); err != nil {
		return err
	}
	observability.RecordAccountEvent("password_changed")
	return nil
}

// RequestPasswordResetLink emails a reset link to the account registered under email.
func (s *AccountService) RequestPasswordResetLink(ctx context.Context, email string) (notice Notice, err error) {
	span, ctx := observability.NewSpan(ctx, "account.reset_link.request")
	defer func() { span.End(err) }()

	user, err := s.resetTarget(ctx, email)
	if err != nil {
		return notice, err
	}
	uid, token, err := s.tokens.IssueLink(user, tokens.PurposeResetPassword)
	if err != nil {
		return notice, err
	}
	msg, err := s.composer.ResetLink(user.Email, user.Username, s.link(resetPath, uid, token))
	if err == nil {
		err = s.deliver(ctx, msg)
	}
	if err != nil {
		notice.Warning = "We could not send the password reset email. Please try again later."
	}
	return notice, nil
}

// ResetWithLinkInput is the form behind an emailed reset link.
type ResetWithLinkInput struct {
	UID       string
	Token     string
	Password1 string
	Password2 string
}

// ConfirmPasswordResetLink sets a new password for the account the link was issued to.
func (s *AccountService) ConfirmPasswordResetLink(ctx context.Context, in ResetWithLinkInput) (err error) {
	span, ctx := observability.NewSpan(ctx, "account.reset_link.confirm")
	defer func() { span.End(err) }()

	if in.Password1 != in.Password2 {
		return models.NewFieldError("password2", "The two password fields didn't match")
	}
	user, err := s.tokens.VerifyLink(ctx, in.UID, in.Token, tokens.PurposeResetPassword)
	if err != nil {
		return err
	}
	if err = s.identity.SetPassword(ctx, user, in.Password1); err != nil {
		return err
	}
	observability.RecordAccountEvent("password_reset")
	return nil
}

// RequestPasswordResetOTP stores a one-time code and emails it.
func (s *AccountService) RequestPasswordResetOTP(ctx context.Context, email string) (notice Notice, err error) {
	span, ctx := observability.NewSpan(ctx, "account.reset_otp.request")
	defer func() { span.End(err) }()

	user, err := s.resetTarget(ctx, email)
	if err != nil {
		return notice, err
	}
	token, err := s.tokens.IssueOTP(ctx, user)
	if err != nil {
		return notice, err
	}
	msg, err := s.composer.ResetCode(user.Email, user.Username, token.Code, s.tokens.OTPTTL())
	if err == nil {
		err = s.deliver(ctx, msg)
	}
	if err != nil {
		notice.Warning = "We could not send the reset code. Please try again later."
	}
	return notice, nil
}

// ResetWithOTPInput is the form for completing a reset with an emailed code.
type ResetWithOTPInput struct {
	Email     string
	Code      string
	Password1 string
	Password2 string
}

// ConfirmPasswordResetOTP spends the code and sets the new password on the
// account the code was issued to.
func (s *AccountService) ConfirmPasswordResetOTP(ctx context.Context, in ResetWithOTPInput) (err error) {
	span, ctx := observability.NewSpan(ctx, "account.reset_otp.confirm")
	defer func() { span.End(err) }()

	if in.Password1 != in.Password2 {
		return models.NewFieldError("password2", "The two password fields didn't match")
	}
	if err = validation.ValidatePassword(in.Password1); err != nil {
		return models.NewFieldError("password1", err.Error())
	}
	token, user, err := s.tokens.VerifyOTP(ctx, in.Code, in.Email)
	if err != nil {
		return err
	}
	if err = s.tokens.ConsumeOTP(ctx, token); err != nil {
		return err
	}
	if err = s.identity.SetPassword(ctx, user, in.Password1); err != nil {
		return err
	}
	observability.RecordAccountEvent("password_reset")
	return nil
}

// Deactivate hides the account until its owner logs in again.
func (s *AccountService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	observability.RecordAccountEvent("deactivated")
	middleware.Logger.InfoContext(ctx, "account deactivated", slog.String("user_id", userID.String()))
	return nil
}

// Delete permanently removes the account.
func (s *AccountService) Delete(ctx context.Context, userID uuid.UUID) (err error) {
	span, ctx := observability.NewSpan(ctx, "account.delete")
	defer func() { span.End(err) }()

	if err = s.identity.Delete(ctx, userID); err != nil {
		return err
	}
	observability.RecordAccountEvent("deleted")
	middleware.Logger.InfoContext(ctx, "account deleted", slog.String("user_id", userID.String()))
	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID uuid.UUID, in UpdateAccountInput) (*models.User, error) {
	return s.identity.UpdateAccount(ctx, userID, in)
}

// SearchUsers matches query against usernames and emails, leaving out the caller.
func (s *AccountService) SearchUsers(ctx context.Context, callerID uuid.UUID, query string, activeOnly bool, limit, offset int) ([]models.User, error) {
	return s.userRepo.Search(ctx, query, callerID, activeOnly, limit, offset)
}

func (s *AccountService) resetTarget(ctx context.Context, email string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewFieldError("email", "This email does not exist in our database.")
	}
	return user, nil
}

func (s *AccountService) sendVerification(ctx context.Context, user *models.User) error {
	uid, token, err := s.tokens.IssueLink(user, tokens.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	msg, err := s.composer.Verification(user.Email, user.Username, s.link(verifyPath, uid, token))
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}

// deliver sends msg, recording the outcome. Failures come back as delivery errors.
func (s *AccountService) deliver(ctx context.Context, msg mail.Message) error {
	err := s.mailer.Send(ctx, msg)
	observability.RecordEmail(msg.Kind, err)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "email delivery failed",
			slog.String("kind", msg.Kind), slog.String("error", err.Error()))
		return models.NewDeliveryError(err)
	}
	return nil
}

func (s *AccountService) link(path, uid, token string) string {
	return s.siteURL + path + uid + "/" + token
}
