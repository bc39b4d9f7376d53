package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogStatus is the publication state of a blog. The transition is one-way.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// Blog is a container of posts owned by a single user.
type Blog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"-"`
	Heading       string     `gorm:"size:256;not null" json:"heading"`
	Description   string     `gorm:"type:text" json:"description"`
	Status        BlogStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	Tags          []Tag      `gorm:"many2many:blog_tags;" json:"tags"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`

	// Computed per request; not persisted.
	Author        *PublicUser  `gorm:"-" json:"author,omitempty"`
	LikesCount    int64        `gorm:"-" json:"likes_count"`
	DislikesCount int64        `gorm:"-" json:"dislikes_count"`
	Reaction      ReactionKind `gorm:"-" json:"reaction,omitempty"`
}

func (b *Blog) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BlogStatusDraft
	}
	return nil
}

// IsPublished reports whether the blog is visible to other users.
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}

// ReactionKind is a user's reaction to a blog.
type ReactionKind string

const (
	ReactionNone    ReactionKind = ""
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// BlogReaction records one user's reaction to one blog. The composite key keeps
// a user out of likes and dislikes at the same time.
type BlogReaction struct {
	UserID    uuid.UUID    `gorm:"type:uuid;primaryKey" json:"user_id"`
	BlogID    uuid.UUID    `gorm:"type:uuid;primaryKey;index" json:"blog_id"`
	Kind      ReactionKind `gorm:"type:varchar(8);not null" json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM
func (BlogReaction) TableName() string {
	return "blog_reactions"
}

// ReactionCounts aggregates reactions for one blog.
type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

// Post is an entry inside a blog.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlogID    uuid.UUID `gorm:"type:uuid;not null;index" json:"blog_id"`
	Heading   string    `gorm:"size:256" json:"heading,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Comment is a top-level remark on a blog.
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlogID    uuid.UUID `gorm:"type:uuid;not null;index" json:"blog_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Body      string    `gorm:"size:512;not null" json:"body"`
	Replies   []Reply   `gorm:"foreignKey:CommentID" json:"replies"`
	CreatedAt time.Time `json:"created_at"`

	Author *PublicUser `gorm:"-" json:"author,omitempty"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Reply answers a comment.
type Reply struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;index" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Body      string    `gorm:"size:512;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`

	Author *PublicUser `gorm:"-" json:"author,omitempty"`
}

func (r *Reply) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
