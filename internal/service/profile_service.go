package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/google/uuid"
)

const maxBioLength = 256

// ProfileService provides the social side of accounts: bios, follow edges,
// saved blogs and followed tags.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	blogRepo    repository.BlogRepository
	tagRepo     repository.TagRepository
}

// NewProfileService returns a new ProfileService.
func NewProfileService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository, blogRepo repository.BlogRepository, tagRepo repository.TagRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		blogRepo:    blogRepo,
		tagRepo:     tagRepo,
	}
}

// GetProfile returns the profile of userID with its counters.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.ProfileStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &models.ProfileStats{Profile: profile, User: user.Public()}
	if stats.FollowingCount, err = s.profileRepo.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if stats.FollowersCount, err = s.profileRepo.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if stats.SavedCount, err = s.profileRepo.CountSaved(ctx, userID); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *ProfileService) UpdateBio(ctx context.Context, userID uuid.UUID, bio string) (*models.ProfileStats, error) {
	bio = strings.TrimSpace(bio)
	if len([]rune(bio)) > maxBioLength {
		return nil, models.NewFieldError("bio", "bio must be at most 256 characters long")
	}
	if err := s.profileRepo.UpdateBio(ctx, userID, bio); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// Follow makes actorID follow targetID. Following twice changes nothing.
func (s *ProfileService) Follow(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.profileRepo.Follow(ctx, actorID, targetID)
}

// Unfollow removes the edge if present.
func (s *ProfileService) Unfollow(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return models.NewValidationError("You cannot unfollow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.profileRepo.Unfollow(ctx, actorID, targetID)
}

func (s *ProfileService) IsFollowing(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	return s.profileRepo.IsFollowing(ctx, actorID, targetID)
}

// Following lists the accounts userID follows.
func (s *ProfileService) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error) {
	return s.profileRepo.Following(ctx, userID, limit, offset)
}

// Followers lists the accounts following userID.
func (s *ProfileService) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, error) {
	return s.profileRepo.Followers(ctx, userID, limit, offset)
}

// SaveBlog bookmarks a blog the user can see.
func (s *ProfileService) SaveBlog(ctx context.Context, userID, blogID uuid.UUID) error {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		return err
	}
	if !visibleTo(blog, userID) {
		return models.NewNotFoundError("Blog", blogID)
	}
	return s.profileRepo.SaveBlog(ctx, userID, blogID)
}

func (s *ProfileService) UnsaveBlog(ctx context.Context, userID, blogID uuid.UUID) error {
	return s.profileRepo.UnsaveBlog(ctx, userID, blogID)
}

// SavedBlogs lists bookmarked blogs that are currently published.
func (s *ProfileService) SavedBlogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Blog, error) {
	return s.profileRepo.SavedBlogs(ctx, userID, limit, offset)
}

func (s *ProfileService) AddTag(ctx context.Context, userID, tagID uuid.UUID) error {
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		return err
	}
	return s.profileRepo.AddTag(ctx, userID, tagID)
}

func (s *ProfileService) RemoveTag(ctx context.Context, userID, tagID uuid.UUID) error {
	return s.profileRepo.RemoveTag(ctx, userID, tagID)
}
