package repository

import (
	"context"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines persistence operations for comments and replies.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByBlog(ctx context.Context, blogID uuid.UUID, limit, offset int) ([]models.Comment, error)
	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReply(ctx context.Context, id uuid.UUID) (*models.Reply, error)
	DeleteReply(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Replies.User").
		First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Comment", id)
	}
	return &comment, nil
}

// Delete removes the comment and its replies.
func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Comment{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if affected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// ListByBlog returns the newest comments first, each with its replies oldest first.
func (r *commentRepository) ListByBlog(ctx context.Context, blogID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	limit, offset = clampPage(limit, offset)
	var comments []models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Replies.User").
		Where("blog_id = ?", blogID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetReply(ctx context.Context, id uuid.UUID) (*models.Reply, error) {
	var reply models.Reply
	if err := readDB(r.db).WithContext(ctx).Preload("User").First(&reply, "id = ?", id).Error; err != nil {
		return nil, notFoundOrInternal(err, "Reply", id)
	}
	return &reply, nil
}

func (r *commentRepository) DeleteReply(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reply{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reply", id)
	}
	return nil
}
