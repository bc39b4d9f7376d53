package models

import "github.com/google/uuid"

// The join tables below are created by the many2many associations on Profile
// and Blog; these types are only used to insert and delete single rows.

// SavedBlog links a profile to a blog it bookmarked.
type SavedBlog struct {
	ProfileID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BlogID    uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (SavedBlog) TableName() string {
	return "profile_saved_blogs"
}

// ProfileTag links a profile to a followed tag.
type ProfileTag struct {
	ProfileID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (ProfileTag) TableName() string {
	return "profile_tags"
}

// BlogTag links a blog to a tag.
type BlogTag struct {
	BlogID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID  uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (BlogTag) TableName() string {
	return "blog_tags"
}
