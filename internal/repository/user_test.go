package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name         string
		email        string
		mockBehavior func()
		wantUser     bool
		wantErr      bool
	}{
		{
			name:  "Found",
			email: "ada@example.com",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(id.String(), "adalovelace", "ada@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("ada@example.com", 1).
					WillReturnRows(rows)
			},
			wantUser: true,
		},
		{
			name:  "Missing returns nil without error",
			email: "nobody@example.com",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("nobody@example.com", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
		},
		{
			name:  "Driver failure",
			email: "broken@example.com",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("broken@example.com", 1).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByEmail(ctx, tt.email)
			if tt.wantErr {
				assert.True(t, models.HasCode(err, models.CodeInternal))
			} else {
				assert.NoError(t, err)
			}
			if tt.wantUser {
				require.NotNil(t, user)
				assert.Equal(t, id, user.ID)
				assert.Equal(t, "adalovelace", user.Username)
			} else {
				assert.Nil(t, user)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateAddsProfile(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "grace@example.com", Username: "gracehopper", Password: "hash", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)
	require.NotNil(t, user.Profile)
	assert.Equal(t, models.DefaultDisplayPic, user.DisplayPic)

	var profiles int64
	require.NoError(t, db.Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	testutil.CreateUser(t, db, "taken_name")

	err := repo.Create(ctx, &models.User{Email: "taken_name@example.com", Username: "another", Password: "x"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_IsActiveUsesCache(t *testing.T) {
	db := testutil.NewTestDB(t)
	mr, _ := testutil.NewRedis(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "cached_user")

	active, err := repo.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.True(t, mr.Exists(cache.UserStatusKey(user.ID)))

	// A write behind the repository's back is not seen until invalidation.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	active, err = repo.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)

	user.IsActive = false
	require.NoError(t, repo.Update(ctx, user))
	assert.False(t, mr.Exists(cache.UserStatusKey(user.ID)))
	active, err = repo.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = repo.IsActive(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_Search(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "searcher")
	testutil.CreateUser(t, db, "alice_smith")
	testutil.CreateUser(t, db, "alice_jones", testutil.Inactive())
	testutil.CreateUser(t, db, "bob_100%")

	users, err := repo.Search(ctx, "ALICE", me.ID, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.Search(ctx, "alice", me.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice_smith", users[0].Username)

	users, err = repo.Search(ctx, "searcher", me.ID, false, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = repo.Search(ctx, "100%", uuid.Nil, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob_100%", users[0].Username)

	// Email matches too.
	users, err = repo.Search(ctx, "example.com", me.ID, false, 2, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	blogs := NewBlogRepository(db)
	profiles := NewProfileRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	doomed := testutil.CreateUser(t, db, "doomed_user")
	other := testutil.CreateUser(t, db, "other_user")

	ownBlog := testutil.CreateBlog(t, db, doomed, "Mine", true)
	otherBlog := testutil.CreateBlog(t, db, other, "Theirs", true)
	require.NoError(t, db.Create(&models.Post{BlogID: ownBlog.ID, Content: "body"}).Error)

	tag := &models.Tag{Name: "golang"}
	require.NoError(t, db.Create(tag).Error)
	require.NoError(t, blogs.AddTag(ctx, ownBlog.ID, tag.ID))
	require.NoError(t, profiles.AddTag(ctx, doomed.ID, tag.ID))

	// The other user bookmarks, comments on and reacts to the doomed blog.
	require.NoError(t, profiles.SaveBlog(ctx, other.ID, ownBlog.ID))
	onOwn := &models.Comment{BlogID: ownBlog.ID, UserID: other.ID, Body: "nice"}
	require.NoError(t, comments.Create(ctx, onOwn))
	_, err := blogs.ToggleReaction(ctx, other.ID, ownBlog.ID, models.ReactionLike)
	require.NoError(t, err)

	// The doomed user is active on the other blog.
	onOther := &models.Comment{BlogID: otherBlog.ID, UserID: doomed.ID, Body: "hello"}
	require.NoError(t, comments.Create(ctx, onOther))
	require.NoError(t, comments.CreateReply(ctx, &models.Reply{CommentID: onOther.ID, UserID: other.ID, Body: "hi"}))
	keptComment := &models.Comment{BlogID: otherBlog.ID, UserID: other.ID, Body: "mine"}
	require.NoError(t, comments.Create(ctx, keptComment))
	require.NoError(t, comments.CreateReply(ctx, &models.Reply{CommentID: keptComment.ID, UserID: doomed.ID, Body: "reply"}))
	_, err = blogs.ToggleReaction(ctx, doomed.ID, otherBlog.ID, models.ReactionDislike)
	require.NoError(t, err)
	require.NoError(t, profiles.SaveBlog(ctx, doomed.ID, otherBlog.ID))

	require.NoError(t, profiles.Follow(ctx, doomed.ID, other.ID))
	require.NoError(t, profiles.Follow(ctx, other.ID, doomed.ID))
	require.NoError(t, db.Create(&models.OTPToken{UserID: doomed.ID, Code: "123456", ExpiresAt: db.NowFunc()}).Error)

	require.NoError(t, repo.Delete(ctx, doomed.ID))

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.User{}, "id = ?", doomed.ID))
	assert.Zero(t, count(&models.Profile{}, "user_id = ?", doomed.ID))
	assert.Zero(t, count(&models.Blog{}, "user_id = ?", doomed.ID))
	assert.Zero(t, count(&models.Post{}, "blog_id = ?", ownBlog.ID))
	assert.Zero(t, count(&models.Comment{}, "user_id = ? OR blog_id = ?", doomed.ID, ownBlog.ID))
	assert.Zero(t, count(&models.Reply{}, "user_id = ? OR comment_id = ?", doomed.ID, onOther.ID))
	assert.Zero(t, count(&models.BlogReaction{}, "user_id = ? OR blog_id = ?", doomed.ID, ownBlog.ID))
	assert.Zero(t, count(&models.Follow{}, "follower_id = ? OR followee_id = ?", doomed.ID, doomed.ID))
	assert.Zero(t, count(&models.SavedBlog{}, "blog_id = ?", ownBlog.ID))
	assert.Zero(t, count(&models.BlogTag{}, "blog_id = ?", ownBlog.ID))
	assert.Zero(t, count(&models.ProfileTag{}, "tag_id = ?", tag.ID))
	assert.Zero(t, count(&models.OTPToken{}, "user_id = ?", doomed.ID))

	assert.Equal(t, int64(1), count(&models.User{}, "id = ?", other.ID))
	assert.Equal(t, int64(1), count(&models.Blog{}, "id = ?", otherBlog.ID))
	assert.Equal(t, int64(1), count(&models.Comment{}, "id = ?", keptComment.ID))
	assert.Equal(t, int64(1), count(&models.Tag{}, "id = ?", tag.ID))

	err = repo.Delete(ctx, doomed.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
