package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
)

// FeedPageSize is the default number of blogs per feed page.
const FeedPageSize = 5

// BlogService provides blog authoring, publishing, tagging and reactions.
type BlogService struct {
	blogRepo repository.BlogRepository
	tagRepo  repository.TagRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewBlogService returns a new BlogService.
func NewBlogService(blogRepo repository.BlogRepository, tagRepo repository.TagRepository, userRepo repository.UserRepository) *BlogService {
	return &BlogService{blogRepo: blogRepo, tagRepo: tagRepo, userRepo: userRepo, now: time.Now}
}

// BlogInput is the editable part of a blog.
type BlogInput struct {
	Heading     string `json:"heading" validate:"required,max=256"`
	Description string `json:"description"`
}

func (in *BlogInput) normalize() error {
	in.Heading = strings.TrimSpace(in.Heading)
	if err := validation.Struct(in); err != nil {
		return fieldError(err)
	}
	return nil
}

// CreateBlog starts a draft owned by ownerID.
func (s *BlogService) CreateBlog(ctx context.Context, ownerID uuid.UUID, in BlogInput) (*models.Blog, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	blog := &models.Blog{
		UserID:      ownerID,
		Heading:     in.Heading,
		Description: in.Description,
		Status:      models.BlogStatusDraft,
	}
	if err := s.blogRepo.Create(ctx, blog); err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, ownerID, blog.ID)
}

// GetBlog returns the blog decorated for viewerID. Drafts are only visible to
// their owner.
func (s *BlogService) GetBlog(ctx context.Context, viewerID, blogID uuid.UUID) (*models.Blog, error) {
	blog, err := s.visibleBlog(ctx, viewerID, blogID)
	if err != nil {
		return nil, err
	}
	blogs := []models.Blog{*blog}
	if err := s.Decorate(ctx, viewerID, blogs); err != nil {
		return nil, err
	}
	return &blogs[0], nil
}

func (s *BlogService) UpdateBlog(ctx context.Context, actorID, blogID uuid.UUID, in BlogInput) (*models.Blog, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	blog, err := s.ownedBlog(ctx, actorID, blogID)
	if err != nil {
		return nil, err
	}
	blog.Heading = in.Heading
	blog.Description = in.Description
	if err := s.blogRepo.Update(ctx, blog); err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, actorID, blogID)
}

func (s *BlogService) DeleteBlog(ctx context.Context, actorID, blogID uuid.UUID) error {
	if _, err := s.ownedBlog(ctx, actorID, blogID); err != nil {
		return err
	}
	return s.blogRepo.Delete(ctx, blogID)
}

// Publish makes the blog visible to everyone and stamps the publication time.
// Publishing again only refreshes the stamp.
func (s *BlogService) Publish(ctx context.Context, actorID, blogID uuid.UUID) (*models.Blog, error) {
	if _, err := s.ownedBlog(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	if err := s.blogRepo.Publish(ctx, blogID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, actorID, blogID)
}

// ReactionResult is the state of a blog after a reaction toggle.
type ReactionResult struct {
	Reaction models.ReactionKind `json:"reaction"`
	Likes    int64               `json:"likes_count"`
	Dislikes int64               `json:"dislikes_count"`
}

func (s *BlogService) Like(ctx context.Context, actorID, blogID uuid.UUID) (*ReactionResult, error) {
	return s.react(ctx, actorID, blogID, models.ReactionLike)
}

func (s *BlogService) Dislike(ctx context.Context, actorID, blogID uuid.UUID) (*ReactionResult, error) {
	return s.react(ctx, actorID, blogID, models.ReactionDislike)
}

// react toggles kind: repeating a reaction removes it, and the opposite
// reaction is dropped when switching.
func (s *BlogService) react(ctx context.Context, actorID, blogID uuid.UUID, kind models.ReactionKind) (*ReactionResult, error) {
	if _, err := s.visibleBlog(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	now, err := s.blogRepo.ToggleReaction(ctx, actorID, blogID, kind)
	if err != nil {
		return nil, err
	}
	result := "removed"
	if now != models.ReactionNone {
		result = "added"
	}
	observability.Reactions.WithLabelValues(string(kind), result).Inc()

	counts, err := s.blogRepo.ReactionCounts(ctx, []uuid.UUID{blogID})
	if err != nil {
		return nil, err
	}
	c := counts[blogID]
	return &ReactionResult{Reaction: now, Likes: c.Likes, Dislikes: c.Dislikes}, nil
}

// Feed lists published blogs, most recently updated first.
func (s *BlogService) Feed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]models.Blog, error) {
	if limit <= 0 {
		limit = FeedPageSize
	}
	blogs, err := s.blogRepo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.Decorate(ctx, viewerID, blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

// ListUserBlogs lists ownerID's blogs; drafts are included only for the owner.
func (s *BlogService) ListUserBlogs(ctx context.Context, viewerID, ownerID uuid.UUID, limit, offset int) ([]models.Blog, error) {
	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	blogs, err := s.blogRepo.ListByUser(ctx, ownerID, viewerID != ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.Decorate(ctx, viewerID, blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func (s *BlogService) AddTag(ctx context.Context, actorID, blogID, tagID uuid.UUID) (*models.Blog, error) {
	if _, err := s.ownedBlog(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		return nil, err
	}
	if err := s.blogRepo.AddTag(ctx, blogID, tagID); err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, actorID, blogID)
}

func (s *BlogService) RemoveTag(ctx context.Context, actorID, blogID, tagID uuid.UUID) (*models.Blog, error) {
	if _, err := s.ownedBlog(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	if err := s.blogRepo.RemoveTag(ctx, blogID, tagID); err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, actorID, blogID)
}

// Decorate fills the author, reaction counts and the viewer's own reaction on
// each blog in place.
func (s *BlogService) Decorate(ctx context.Context, viewerID uuid.UUID, blogs []models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(blogs))
	for i := range blogs {
		ids[i] = blogs[i].ID
	}
	counts, err := s.blogRepo.ReactionCounts(ctx, ids)
	if err != nil {
		return err
	}
	mine, err := s.blogRepo.ReactionsBy(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for i := range blogs {
		b := &blogs[i]
		if b.User.ID != uuid.Nil {
			author := b.User.Public()
			b.Author = &author
		}
		b.LikesCount = counts[b.ID].Likes
		b.DislikesCount = counts[b.ID].Dislikes
		b.Reaction = mine[b.ID]
	}
	return nil
}

// visibleBlog loads a blog the viewer may see. Other users' drafts read as missing.
func (s *BlogService) visibleBlog(ctx context.Context, viewerID, blogID uuid.UUID) (*models.Blog, error) {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(blog, viewerID) {
		return nil, models.NewNotFoundError("Blog", blogID)
	}
	return blog, nil
}

func (s *BlogService) ownedBlog(ctx context.Context, actorID, blogID uuid.UUID) (*models.Blog, error) {
	blog, err := s.visibleBlog(ctx, actorID, blogID)
	if err != nil {
		return nil, err
	}
	if blog.UserID != actorID {
		return nil, models.NewForbiddenError("You can only modify your own blogs")
	}
	return blog, nil
}

func visibleTo(blog *models.Blog, viewerID uuid.UUID) bool {
	return blog.IsPublished() || blog.UserID == viewerID
}

// fieldError converts a validation failure into an application error.
func fieldError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return models.NewFieldError(fe.Field, fe.Message)
	}
	return models.NewValidationError(err.Error())
}
