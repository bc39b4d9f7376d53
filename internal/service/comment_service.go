package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/google/uuid"
)

const maxCommentLength = 512

// CommentService provides comments on blogs and replies to comments.
type CommentService struct {
	commentRepo repository.CommentRepository
	blogRepo    repository.BlogRepository
}

// NewCommentService returns a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, blogRepo repository.BlogRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, blogRepo: blogRepo}
}

func commentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", models.NewFieldError("body", "body is required")
	}
	if len([]rune(body)) > maxCommentLength {
		return "", models.NewFieldError("body", "body must be at most 512 characters long")
	}
	return body, nil
}

// Comment adds a top-level comment to a blog the actor can see.
func (s *CommentService) Comment(ctx context.Context, actorID, blogID uuid.UUID, body string) (*models.Comment, error) {
	body, err := commentBody(body)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actorID, blogID); err != nil {
		return nil, err
	}
	comment := &models.Comment{BlogID: blogID, UserID: actorID, Body: body}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.GetComment(ctx, comment.ID)
}

// Reply answers a comment.
func (s *CommentService) Reply(ctx context.Context, actorID, commentID uuid.UUID, body string) (*models.Reply, error) {
	body, err := commentBody(body)
	if err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actorID, comment.BlogID); err != nil {
		return nil, err
	}
	reply := &models.Reply{CommentID: commentID, UserID: actorID, Body: body}
	if err := s.commentRepo.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	reply, err = s.commentRepo.GetReply(ctx, reply.ID)
	if err != nil {
		return nil, err
	}
	author := reply.User.Public()
	reply.Author = &author
	return reply, nil
}

func (s *CommentService) GetComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	decorateComment(comment)
	return comment, nil
}

// ListComments returns the newest comments first, each with its replies.
func (s *CommentService) ListComments(ctx context.Context, viewerID, blogID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	if err := s.checkVisible(ctx, viewerID, blogID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByBlog(ctx, blogID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		decorateComment(&comments[i])
	}
	return comments, nil
}

// DeleteComment removes a comment and its replies. Its author and the blog
// owner may do so.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, commentID uuid.UUID) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		blog, err := s.blogRepo.GetByID(ctx, comment.BlogID)
		if err != nil {
			return err
		}
		if blog.UserID != actorID {
			return models.NewForbiddenError("You can only delete your own comments")
		}
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// DeleteReply removes a reply written by the actor.
func (s *CommentService) DeleteReply(ctx context.Context, actorID, replyID uuid.UUID) error {
	reply, err := s.commentRepo.GetReply(ctx, replyID)
	if err != nil {
		return err
	}
	if reply.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own replies")
	}
	return s.commentRepo.DeleteReply(ctx, replyID)
}

func (s *CommentService) checkVisible(ctx context.Context, viewerID, blogID uuid.UUID) error {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		return err
	}
	if !visibleTo(blog, viewerID) {
		return models.NewNotFoundError("Blog", blogID)
	}
	return nil
}

func decorateComment(c *models.Comment) {
	if c.User.ID != uuid.Nil {
		author := c.User.Public()
		c.Author = &author
	}
	for i := range c.Replies {
		r := &c.Replies[i]
		if r.User.ID != uuid.Nil {
			author := r.User.Public()
			r.Author = &author
		}
	}
}
