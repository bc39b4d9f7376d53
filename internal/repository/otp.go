package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OTPRepository defines persistence operations for password reset codes.
type OTPRepository interface {
	Create(ctx context.Context, token *models.OTPToken) error
	FindLatest(ctx context.Context, userID uuid.UUID, code string) (*models.OTPToken, error)
	MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository returns a new OTPRepository implementation.
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, token *models.OTPToken) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(token).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// FindLatest returns the most recently issued token matching code for the
// user, or nil when there is none. Reads go to the primary so a code issued a
// moment ago is visible.
func (r *otpRepository) FindLatest(ctx context.Context, userID uuid.UUID, code string) (*models.OTPToken, error) {
	var token models.OTPToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &token, nil
}

// MarkConsumed stamps the token as used. A token that was already consumed is
// reported as invalid.
func (r *otpRepository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.OTPToken{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewInvalidTokenError("Invalid or already used code")
	}
	return nil
}

// DeleteExpired purges codes that expired at or before now and codes already used.
func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ? OR consumed_at IS NOT NULL", now).
		Delete(&models.OTPToken{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
