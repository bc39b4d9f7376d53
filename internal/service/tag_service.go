package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/google/uuid"
)

const maxTagLength = 64

// TagService provides the shared tag vocabulary.
type TagService struct {
	tagRepo  repository.TagRepository
	userRepo repository.UserRepository
}

// NewTagService returns a new TagService.
func NewTagService(tagRepo repository.TagRepository, userRepo repository.UserRepository) *TagService {
	return &TagService{tagRepo: tagRepo, userRepo: userRepo}
}

func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

// CreateTag adds a tag. Only staff may do so.
func (s *TagService) CreateTag(ctx context.Context, actorID uuid.UUID, name string) (*models.Tag, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage() {
		return nil, models.NewForbiddenError("Only staff can create tags")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewFieldError("name", "name is required")
	}
	if len([]rune(name)) > maxTagLength {
		return nil, models.NewFieldError("name", "name must be at most 64 characters long")
	}
	existing, err := s.tagRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewFieldError("name", "Tag already exists")
	}

	tag := &models.Tag{Name: name}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}
