package repository

import (
	"context"
	"fmt"
	"testing"

	"adda/internal/database"
	"adda/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestRepo(t *testing.T) PostRepository {
	t.Helper()
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	require.NoError(t, err)
	return NewPostRepository(db)
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	post := &database.PostRecord{
		UserID:     "u1",
		UserName:   gofakeit.Name(),
		PostType:   models.PostTypeEvent,
		Title:      gofakeit.Sentence(3),
		Visibility: models.VisibilityPublic,
		Tags:       []string{"go"},
		Media:      []models.Media{{Type: models.MediaTypeImage, URL: "https://cdn.test/x.jpg"}},
		Event:      &models.Event{StartDate: "2024-05-01", EndDate: "2024-05-01", Venue: "Hall"},
	}
	require.NoError(t, repo.Create(ctx, post))
	require.NotEmpty(t, post.ID)

	require.NoError(t, repo.AddComment(ctx, &database.CommentRecord{PostID: post.ID, UserID: "u2", Content: "first"}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Equal(t, post.Media, got.Media)
	require.NotNil(t, got.Event)
	assert.Equal(t, "Hall", got.Event.Venue)
	assert.Nil(t, got.Article)
	require.Len(t, got.Comments, 1)

	api := ToCreatedPost(got)
	assert.Equal(t, []string{got.Comments[0].ID}, api.Comments)
	assert.Equal(t, "u1", api.User.ID)
}

func TestPostRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByID(ctx, "missing")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	err = repo.AddComment(ctx, &database.CommentRecord{PostID: "missing", UserID: "u", Content: "x"})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	err = repo.Save(ctx, "u", "missing")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_SaveUnsave(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	post := &database.PostRecord{UserID: "u1", PostType: models.PostTypeText, Content: "hi", Visibility: models.VisibilityPublic}
	require.NoError(t, repo.Create(ctx, post))

	saved, err := repo.IsSaved(ctx, "u2", post.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	require.NoError(t, repo.Save(ctx, "u2", post.ID))
	require.NoError(t, repo.Save(ctx, "u2", post.ID), "saving twice is idempotent")
	saved, err = repo.IsSaved(ctx, "u2", post.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	require.NoError(t, repo.Unsave(ctx, "u2", post.ID))
	saved, err = repo.IsSaved(ctx, "u2", post.ID)
	require.NoError(t, err)
	assert.False(t, saved)
}
