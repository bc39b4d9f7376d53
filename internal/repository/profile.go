package repository

import (
	"context"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines persistence operations for profiles, follow edges,
// saved blogs and followed tags.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateBio(ctx context.Context, userID uuid.UUID, bio string) error
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error)
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error)
	CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
	SaveBlog(ctx context.Context, userID, blogID uuid.UUID) error
	UnsaveBlog(ctx context.Context, userID, blogID uuid.UUID) error
	SavedBlogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Blog, error)
	CountSaved(ctx context.Context, userID uuid.UUID) (int64, error)
	AddTag(ctx context.Context, userID, tagID uuid.UUID) error
	RemoveTag(ctx context.Context, userID, tagID uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := readDB(r.db).WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Profile", userID)
	}
	return &profile, nil
}

func (r *profileRepository) UpdateBio(ctx context.Context, userID uuid.UUID, bio string) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Update("bio", bio)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", userID)
	}
	return nil
}

// profileID resolves the profile primary key for a user inside tx.
func profileID(tx *gorm.DB, userID uuid.UUID) (uuid.UUID, error) {
	var ids []uuid.UUID
	if err := tx.Model(&models.Profile{}).Where("user_id = ?", userID).Limit(1).Pluck("id", &ids).Error; err != nil {
		return uuid.Nil, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return uuid.Nil, models.NewNotFoundError("Profile", userID)
	}
	return ids[0], nil
}

// Follow records the edge once; following twice is a no-op.
func (r *profileRepository) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertIgnore(tx, &models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&models.Follow{}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	var n int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *profileRepository) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error) {
	return r.edgeUsers(ctx, "follows.followee_id", "follows.follower_id", userID, limit, offset)
}

func (r *profileRepository) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error) {
	return r.edgeUsers(ctx, "follows.follower_id", "follows.followee_id", userID, limit, offset)
}

func (r *profileRepository) edgeUsers(ctx context.Context, joinCol, matchCol string, userID uuid.UUID, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Joins("JOIN follows ON "+joinCol+" = users.id").
		Where(matchCol+" = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *profileRepository) CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.countFollows(ctx, "follower_id = ?", userID)
}

func (r *profileRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.countFollows(ctx, "followee_id = ?", userID)
}

func (r *profileRepository) countFollows(ctx context.Context, where string, userID uuid.UUID) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).Where(where, userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *profileRepository) SaveBlog(ctx context.Context, userID, blogID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := profileID(tx, userID)
		if err != nil {
			return err
		}
		if err := insertIgnore(tx, &models.SavedBlog{ProfileID: pid, BlogID: blogID}); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *profileRepository) UnsaveBlog(ctx context.Context, userID, blogID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := profileID(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("profile_id = ? AND blog_id = ?", pid, blogID).Delete(&models.SavedBlog{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// SavedBlogs lists bookmarked blogs that are still published.
func (r *profileRepository) SavedBlogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Blog, error) {
	limit, offset = clampPage(limit, offset)
	var blogs []models.Blog
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Joins("JOIN profile_saved_blogs ON profile_saved_blogs.blog_id = blogs.id").
		Joins("JOIN profiles ON profiles.id = profile_saved_blogs.profile_id").
		Where("profiles.user_id = ? AND blogs.status = ?", userID, models.BlogStatusPublished).
		Order("blogs.updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&blogs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (r *profileRepository) CountSaved(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := readDB(r.db).WithContext(ctx).Model(&models.SavedBlog{}).
		Joins("JOIN profiles ON profiles.id = profile_saved_blogs.profile_id").
		Joins("JOIN blogs ON blogs.id = profile_saved_blogs.blog_id").
		Where("profiles.user_id = ? AND blogs.status = ?", userID, models.BlogStatusPublished).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *profileRepository) AddTag(ctx context.Context, userID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := profileID(tx, userID)
		if err != nil {
			return err
		}
		if err := insertIgnore(tx, &models.ProfileTag{ProfileID: pid, TagID: tagID}); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *profileRepository) RemoveTag(ctx context.Context, userID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := profileID(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("profile_id = ? AND tag_id = ?", pid, tagID).Delete(&models.ProfileTag{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}
