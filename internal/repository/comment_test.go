package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListOrdering(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "commenter")
	blog := testutil.CreateBlog(t, db, user, "Thread", true)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &models.Comment{BlogID: blog.ID, UserID: user.ID, Body: "older", CreatedAt: base}
	newer := &models.Comment{BlogID: blog.ID, UserID: user.ID, Body: "newer", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.CreateReply(ctx, &models.Reply{CommentID: older.ID, UserID: user.ID, Body: "second", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, repo.CreateReply(ctx, &models.Reply{CommentID: older.ID, UserID: user.ID, Body: "first", CreatedAt: base.Add(time.Hour)}))

	comments, err := repo.ListByBlog(ctx, blog.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "newer", comments[0].Body)
	assert.Equal(t, "older", comments[1].Body)
	require.Len(t, comments[1].Replies, 2)
	assert.Equal(t, "first", comments[1].Replies[0].Body)
	assert.Equal(t, "commenter", comments[1].Replies[0].User.Username)
	assert.Equal(t, "commenter", comments[0].User.Username)

	require.NoError(t, repo.Delete(ctx, older.ID))
	_, err = repo.GetByID(ctx, older.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, uuid.New()), models.CodeNotFound))
}

func TestPostAndTagRepositories(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "poster")
	blog := testutil.CreateBlog(t, db, user, "Journal", false)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, posts.Create(ctx, &models.Post{BlogID: blog.ID, Content: "day two", CreatedAt: base.Add(24 * time.Hour)}))
	first := &models.Post{BlogID: blog.ID, Content: "day one", CreatedAt: base}
	require.NoError(t, posts.Create(ctx, first))

	list, err := posts.ListByBlog(ctx, blog.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "day one", list[0].Content)

	first.Content = "day one, edited"
	require.NoError(t, posts.Update(ctx, first))
	got, err := posts.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "day one, edited", got.Content)

	require.NoError(t, posts.Delete(ctx, first.ID))
	assert.True(t, models.HasCode(posts.Delete(ctx, first.ID), models.CodeNotFound))

	require.NoError(t, tags.Create(ctx, &models.Tag{Name: "zig"}))
	require.NoError(t, tags.Create(ctx, &models.Tag{Name: "ada"}))
	err = tags.Create(ctx, &models.Tag{Name: "zig"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	all, err := tags.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ada", all[0].Name)

	byName, err := tags.GetByName(ctx, "zig")
	require.NoError(t, err)
	require.NotNil(t, byName)
	none, err := tags.GetByName(ctx, "cobol")
	require.NoError(t, err)
	assert.Nil(t, none)
	_, err = tags.GetByID(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
