package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// IdentityService owns account records: creation, credentials, profile fields
// and deletion.
type IdentityService struct {
	userRepo repository.UserRepository
	avatars  media.AvatarStore
	cost     int
}

// NewIdentityService returns a new IdentityService. avatars may be nil.
func NewIdentityService(userRepo repository.UserRepository, avatars media.AvatarStore) *IdentityService {
	return &IdentityService{userRepo: userRepo, avatars: avatars, cost: bcrypt.DefaultCost}
}

// CreateUserInput carries the fields needed to open an account.
type CreateUserInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

// CreateUser stores a new active, unverified account with its profile.
func (s *IdentityService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewFieldError("username", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldError("password1", err.Error())
	}
	if err := s.ensureUnique(ctx, uuid.Nil, email, in.Username); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:    email,
		Username: in.Username,
		Name:     strings.TrimSpace(in.Name),
		Password: hash,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSuperuser stores a verified staff account whose username is the local
// part of email.
func (s *IdentityService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewFieldError("password", err.Error())
	}
	username := email[:strings.LastIndex(email, "@")]
	if err := s.ensureUnique(ctx, uuid.Nil, email, username); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:           email,
		Username:        username,
		Password:        hash,
		IsActive:        true,
		IsEmailVerified: true,
		IsStaff:         true,
		IsSuperuser:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the account for email when password matches. It does
// not look at activation or verification state.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.VerifyCurrentPassword(user, password) {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return user, nil
}

// VerifyCurrentPassword reports whether candidate matches the stored hash.
func (s *IdentityService) VerifyCurrentPassword(user *models.User, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(candidate)) == nil
}

// SetPassword replaces the user's password hash and persists it.
func (s *IdentityService) SetPassword(ctx context.Context, user *models.User, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewFieldError("password1", err.Error())
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.userRepo.Update(ctx, user)
}

// UpdateAccountInput lists the editable account fields; nil leaves a field unchanged.
type UpdateAccountInput struct {
	Email     *string
	Username  *string
	Name      *string
	HideEmail *bool
	Avatar    io.Reader
}

// UpdateAccount applies in to the user. A new avatar replaces the stored one.
func (s *IdentityService) UpdateAccount(ctx context.Context, userID uuid.UUID, in UpdateAccountInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	email, username := user.Email, user.Username
	if in.Email != nil {
		email = validation.NormalizeEmail(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewFieldError("email", err.Error())
		}
	}
	if in.Username != nil {
		username = *in.Username
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewFieldError("username", err.Error())
		}
	}
	if err := s.ensureUnique(ctx, user.ID, email, username); err != nil {
		return nil, err
	}
	user.Email, user.Username = email, username

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len([]rune(name)) > 64 {
			return nil, models.NewFieldError("name", "name must be at most 64 characters")
		}
		user.Name = name
	}
	if in.HideEmail != nil {
		user.HideEmail = *in.HideEmail
	}
	if in.Avatar != nil {
		if s.avatars == nil {
			return nil, models.NewValidationError("Avatar uploads are not enabled")
		}
		if err := s.avatars.Remove(ctx, user.ID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove previous avatar",
				slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
		}
		ref, err := s.avatars.Save(ctx, user.ID, in.Avatar)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.DisplayPic = ref
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the account and everything it owns, then its stored avatar.
func (s *IdentityService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	if s.avatars != nil {
		if err := s.avatars.Remove(ctx, userID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove avatar of deleted user",
				slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ensureUnique reports a field error when email or username belongs to an
// account other than self.
func (s *IdentityService) ensureUnique(ctx context.Context, self uuid.UUID, email, username string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return models.NewFieldError("email", "An account with this email already exists")
	}
	existing, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return models.NewFieldError("username", "This username is already taken")
	}
	return nil
}

func (s *IdentityService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewFieldError("password1", "password is too long")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}
