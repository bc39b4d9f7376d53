package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
)

// PostService provides the entries inside blogs. Only the blog owner writes them.
type PostService struct {
	postRepo repository.PostRepository
	blogRepo repository.BlogRepository
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, blogRepo repository.BlogRepository) *PostService {
	return &PostService{postRepo: postRepo, blogRepo: blogRepo}
}

// PostInput is the editable part of a post.
type PostInput struct {
	Heading string `json:"heading" validate:"max=256"`
	Content string `json:"content" validate:"required"`
	Image   string `json:"image" validate:"omitempty,max=255"`
}

func (in *PostInput) normalize() error {
	in.Heading = strings.TrimSpace(in.Heading)
	if strings.TrimSpace(in.Content) == "" {
		in.Content = ""
	}
	if err := validation.Struct(in); err != nil {
		return fieldError(err)
	}
	return nil
}

func (s *PostService) AddPost(ctx context.Context, actorID, blogID uuid.UUID, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.blogOwnedBy(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	post := &models.Post{BlogID: blogID, Heading: in.Heading, Content: in.Content, Image: in.Image}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, actorID, postID uuid.UUID, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.blogOwnedBy(ctx, actorID, post.BlogID); err != nil {
		return nil, err
	}
	post.Heading, post.Content, post.Image = in.Heading, in.Content, in.Image
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, actorID, postID uuid.UUID) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if _, err := s.blogOwnedBy(ctx, actorID, post.BlogID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

// ListPosts returns the blog's posts oldest first.
func (s *PostService) ListPosts(ctx context.Context, viewerID, blogID uuid.UUID, limit, offset int) ([]models.Post, error) {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(blog, viewerID) {
		return nil, models.NewNotFoundError("Blog", blogID)
	}
	return s.postRepo.ListByBlog(ctx, blogID, limit, offset)
}

func (s *PostService) blogOwnedBy(ctx context.Context, actorID, blogID uuid.UUID) (*models.Blog, error) {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if blog.UserID != actorID {
		if !blog.IsPublished() {
			return nil, models.NewNotFoundError("Blog", blogID)
		}
		return nil, models.NewForbiddenError("Only the blog owner can manage its posts")
	}
	return blog, nil
}
