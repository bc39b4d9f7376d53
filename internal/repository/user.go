package repository

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, excludeID uuid.UUID, activeOnly bool, limit, offset int) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userStatus struct {
	Active bool `json:"active"`
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOrInternal(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// IsActive answers from the status cache, loading from the primary on a miss.
func (r *userRepository) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var status userStatus
	err := cache.Aside(ctx, cache.UserStatusKey(id), &status, cache.UserStatusTTL, func() error {
		var user models.User
		if err := r.db.WithContext(ctx).Select("id", "is_active").First(&user, "id = ?", id).Error; err != nil {
			return notFoundOrInternal(err, "User", id)
		}
		status.Active = user.IsActive
		return nil
	})
	if err != nil {
		return false, err
	}
	return status.Active, nil
}

// Create stores the user together with an empty profile.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID}
		if err := tx.Omit(clause.Associations).Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// Delete removes the user and everything that hangs off the account in one
// transaction: owned blogs with their content, comments and replies the user
// wrote, reactions, follow edges in both directions, the profile and any OTPs.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("User", id)
		}

		var blogIDs []uuid.UUID
		if err := tx.Model(&models.Blog{}).Where("user_id = ?", id).Pluck("id", &blogIDs).Error; err != nil {
			return err
		}
		if err := deleteBlogsTx(tx, blogIDs); err != nil {
			return err
		}

		var commentIDs []uuid.UUID
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR comment_id IN ?", id, nonEmpty(commentIDs)).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.BlogReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}

		var profileIDs []uuid.UUID
		if err := tx.Model(&models.Profile{}).Where("user_id = ?", id).Pluck("id", &profileIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id IN ?", nonEmpty(profileIDs)).Delete(&models.SavedBlog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id IN ?", nonEmpty(profileIDs)).Delete(&models.ProfileTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.OTPToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.User{}).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// Search matches query against username and email, case-insensitively.
func (r *userRepository) Search(ctx context.Context, query string, excludeID uuid.UUID, activeOnly bool, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	q := readDB(r.db).WithContext(ctx).
		Where("(LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", pattern, pattern)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var users []models.User
	if err := q.Order("username ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("date_joined DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// nonEmpty keeps IN clauses valid on every dialect when ids is empty.
func nonEmpty(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return []uuid.UUID{uuid.Nil}
	}
	return ids
}
