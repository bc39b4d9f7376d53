// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDisplayPic is the avatar reference assigned to new accounts.
const DefaultDisplayPic = "default/dummy_image.png"

// User is an account. Email and username are unique; a user whose email is not
// verified cannot complete login.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string     `gorm:"size:64;uniqueIndex;not null" json:"email"`
	Username        string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Name            string     `gorm:"size:64" json:"name,omitempty"`
	Password        string     `gorm:"not null" json:"-"`
	IsActive        bool       `gorm:"not null;default:false" json:"is_active"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"is_email_verified"`
	IsStaff         bool       `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser     bool       `gorm:"not null;default:false" json:"is_superuser"`
	HideEmail       bool       `gorm:"not null;default:false" json:"hide_email"`
	DisplayPic      string     `gorm:"size:255" json:"display_pic"`
	DateJoined      time.Time  `gorm:"autoCreateTime;index" json:"date_joined"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// BeforeCreate assigns the primary key and the default avatar.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.DisplayPic == "" {
		u.DisplayPic = DefaultDisplayPic
	}
	return nil
}

// CanManage reports whether the user has staff privileges.
func (u *User) CanManage() bool {
	return u.IsStaff || u.IsSuperuser
}

// PublicUser is the view of an account shown to other users.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	DisplayPic string    `json:"display_pic"`
	DateJoined time.Time `json:"date_joined"`
}

// Public strips private fields, honoring hide_email.
func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		DisplayPic: u.DisplayPic,
		DateJoined: u.DateJoined,
	}
	if !u.HideEmail {
		p.Email = u.Email
	}
	return p
}

// PublicUsers maps Public over a slice.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}
