// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: database.NewGormLogger(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewRedis starts a miniredis server and installs a client for it as the
// process-wide cache. The previous client is restored on cleanup.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := cache.GetClient()
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = client.Close()
	})
	return mr, client
}

// UserOption tweaks a fixture user before it is stored.
type UserOption func(*models.User)

// Unverified leaves the fixture's email unverified.
func Unverified() UserOption {
	return func(u *models.User) { u.IsEmailVerified = false }
}

// Inactive stores the fixture deactivated.
func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

// CreateUser stores an active, verified user with a profile. The password is
// the username followed by "-pass".
func CreateUser(t testing.TB, db *gorm.DB, username string, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:           username + "@example.com",
		Username:        username,
		Password:        string(hash),
		IsActive:        true,
		IsEmailVerified: true,
	}
	for _, opt := range opts {
		opt(user)
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		// Select("*") so false booleans are written instead of column defaults.
		if err := tx.Select("*").Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID}).Error
	}))
	return user
}

// CreateBlog stores a blog owned by owner. Published blogs get a publication time.
func CreateBlog(t testing.TB, db *gorm.DB, owner *models.User, heading string, published bool) *models.Blog {
	t.Helper()

	blog := &models.Blog{UserID: owner.ID, Heading: heading, Description: heading + " description"}
	if published {
		now := db.NowFunc()
		blog.Status = models.BlogStatusPublished
		blog.DatePublished = &now
	}
	require.NoError(t, db.Omit("User", "Tags").Create(blog).Error)
	return blog
}
