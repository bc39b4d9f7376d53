package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile holds the social side of an account. Following and followers are
// derived from the follows table rather than stored here.
type Profile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Bio        string    `gorm:"size:256" json:"bio"`
	SavedBlogs []Blog    `gorm:"many2many:profile_saved_blogs;" json:"-"`
	Tags       []Tag     `gorm:"many2many:profile_tags;" json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Follow is a directed edge: FollowerID follows FolloweeID. The follower's
// "following" set and the followee's "followed by" set are both read from it.
type Follow struct {
	FollowerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// ProfileStats summarizes a profile for display.
type ProfileStats struct {
	Profile        *Profile   `json:"profile"`
	User           PublicUser `json:"user"`
	FollowingCount int64      `json:"following_count"`
	FollowersCount int64      `json:"followers_count"`
	SavedCount     int64      `json:"saved_count"`
}
