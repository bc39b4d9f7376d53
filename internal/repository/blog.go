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

// BlogRepository defines persistence operations for blogs and their reactions.
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	Update(ctx context.Context, blog *models.Blog) error
	Publish(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context, limit, offset int) ([]models.Blog, error)
	ListByUser(ctx context.Context, userID uuid.UUID, publishedOnly bool, limit, offset int) ([]models.Blog, error)
	ToggleReaction(ctx context.Context, userID, blogID uuid.UUID, kind models.ReactionKind) (models.ReactionKind, error)
	ReactionCounts(ctx context.Context, blogIDs []uuid.UUID) (map[uuid.UUID]models.ReactionCounts, error)
	ReactionsBy(ctx context.Context, userID uuid.UUID, blogIDs []uuid.UUID) (map[uuid.UUID]models.ReactionKind, error)
	AddTag(ctx context.Context, blogID, tagID uuid.UUID) error
	RemoveTag(ctx context.Context, blogID, tagID uuid.UUID) error
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository returns a new BlogRepository implementation.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) Create(ctx context.Context, blog *models.Blog) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(blog).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		First(&blog, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Blog", id)
	}
	return &blog, nil
}

// Update persists heading and description only.
func (r *blogRepository) Update(ctx context.Context, blog *models.Blog) error {
	res := r.db.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", blog.ID).
		Updates(map[string]any{
			"heading":     blog.Heading,
			"description": blog.Description,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Blog", blog.ID)
	}
	return nil
}

// Publish marks the blog published and stamps the publication time. Calling
// it again re-stamps the time.
func (r *blogRepository) Publish(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":         models.BlogStatusPublished,
			"date_published": at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Blog", id)
	}
	return nil
}

func (r *blogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBlogsTx(tx, []uuid.UUID{id})
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// deleteBlogsTx removes blogs with their posts, comments, replies, reactions,
// tag links and bookmarks.
func deleteBlogsTx(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var commentIDs []uuid.UUID
	if err := tx.Model(&models.Comment{}).Where("blog_id IN ?", ids).Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
	}
	steps := []struct {
		model any
		where string
	}{
		{&models.Comment{}, "blog_id IN ?"},
		{&models.Post{}, "blog_id IN ?"},
		{&models.BlogReaction{}, "blog_id IN ?"},
		{&models.BlogTag{}, "blog_id IN ?"},
		{&models.SavedBlog{}, "blog_id IN ?"},
		{&models.Blog{}, "id IN ?"},
	}
	for _, step := range steps {
		if err := tx.Where(step.where, ids).Delete(step.model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *blogRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.Blog, error) {
	limit, offset = clampPage(limit, offset)
	var blogs []models.Blog
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("status = ?", models.BlogStatusPublished).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&blogs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (r *blogRepository) ListByUser(ctx context.Context, userID uuid.UUID, publishedOnly bool, limit, offset int) ([]models.Blog, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("user_id = ?", userID)
	if publishedOnly {
		q = q.Where("status = ?", models.BlogStatusPublished)
	}
	var blogs []models.Blog
	if err := q.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&blogs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

// ToggleReaction applies kind for the user on the blog and returns the
// reaction now in place. Repeating the current reaction clears it; the
// opposite reaction is replaced.
func (r *blogRepository) ToggleReaction(ctx context.Context, userID, blogID uuid.UUID, kind models.ReactionKind) (models.ReactionKind, error) {
	var result models.ReactionKind
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.BlogReaction
		err := forUpdate(tx).Where("user_id = ? AND blog_id = ?", userID, blogID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = kind
			return tx.Create(&models.BlogReaction{UserID: userID, BlogID: blogID, Kind: kind}).Error
		case err != nil:
			return err
		case existing.Kind == kind:
			result = models.ReactionNone
			return tx.Where("user_id = ? AND blog_id = ?", userID, blogID).Delete(&models.BlogReaction{}).Error
		default:
			result = kind
			return tx.Model(&models.BlogReaction{}).
				Where("user_id = ? AND blog_id = ?", userID, blogID).
				Update("kind", kind).Error
		}
	})
	if err != nil {
		return models.ReactionNone, models.NewInternalError(err)
	}
	return result, nil
}

func (r *blogRepository) ReactionCounts(ctx context.Context, blogIDs []uuid.UUID) (map[uuid.UUID]models.ReactionCounts, error) {
	counts := make(map[uuid.UUID]models.ReactionCounts, len(blogIDs))
	if len(blogIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		BlogID uuid.UUID
		Kind   models.ReactionKind
		Total  int64
	}
	err := readDB(r.db).WithContext(ctx).Model(&models.BlogReaction{}).
		Select("blog_id, kind, COUNT(*) AS total").
		Where("blog_id IN ?", blogIDs).
		Group("blog_id, kind").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		c := counts[row.BlogID]
		switch row.Kind {
		case models.ReactionLike:
			c.Likes = row.Total
		case models.ReactionDislike:
			c.Dislikes = row.Total
		}
		counts[row.BlogID] = c
	}
	return counts, nil
}

func (r *blogRepository) ReactionsBy(ctx context.Context, userID uuid.UUID, blogIDs []uuid.UUID) (map[uuid.UUID]models.ReactionKind, error) {
	out := make(map[uuid.UUID]models.ReactionKind, len(blogIDs))
	if len(blogIDs) == 0 || userID == uuid.Nil {
		return out, nil
	}
	var rows []models.BlogReaction
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ? AND blog_id IN ?", userID, blogIDs).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.BlogID] = row.Kind
	}
	return out, nil
}

func (r *blogRepository) AddTag(ctx context.Context, blogID, tagID uuid.UUID) error {
	if err := insertIgnore(r.db.WithContext(ctx), &models.BlogTag{BlogID: blogID, TagID: tagID}); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blogRepository) RemoveTag(ctx context.Context, blogID, tagID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("blog_id = ? AND tag_id = ?", blogID, tagID).
		Delete(&models.BlogTag{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
