package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchpad/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreListOrdering(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Seed(
		models.Post{ID: 1, Title: "old", Upvotes: 9, CreatedAt: base},
		models.Post{ID: 2, Title: "mid", Upvotes: 1, CreatedAt: base.Add(time.Hour)},
		models.Post{ID: 3, Title: "new", Upvotes: 5, CreatedAt: base.Add(2 * time.Hour)},
	)
	ctx := context.Background()

	byTime, err := s.ListPosts(ctx, ListOptions{OrderBy: OrderCreatedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, titles(byTime))

	byVotes, err := s.ListPosts(ctx, ListOptions{OrderBy: OrderUpvotes})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new", "mid"}, titles(byVotes))
	for _, p := range byVotes {
		assert.True(t, p.IsReal)
	}
}

func TestMemoryStoreEqualityFilters(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(
		models.Post{Title: "a", Category: "SaaS", Flag: models.FlagNews},
		models.Post{Title: "b", Category: "SaaS", Flag: models.FlagQuestion},
		models.Post{Title: "c", Category: "Climate", Flag: models.FlagNews},
	)

	posts, err := s.ListPosts(context.Background(), ListOptions{Category: "SaaS", Flag: models.FlagNews})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(posts))
}

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	post := &models.Post{Title: "Acme", Content: "rockets", Author: "wile", Category: "Other"}
	require.NoError(t, s.CreatePost(ctx, post))
	assert.NotZero(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())

	upvotes := 3
	require.NoError(t, s.UpdatePost(ctx, post.ID, models.PostPatch{Upvotes: &upvotes}))
	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Upvotes)
	assert.Equal(t, "rockets", got.Content)

	require.NoError(t, s.CreateComment(ctx, &models.Comment{PostID: post.ID, Author: "x", Content: "first"}))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{PostID: post.ID, Author: "y", Content: "second"}))
	comments, err := s.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Content)

	require.NoError(t, s.DeletePost(ctx, post.ID))
	_, err = s.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdatePost(ctx, post.ID, models.PostPatch{Upvotes: &upvotes}), ErrNotFound)

	comments, err = s.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMemoryStoreHookInjectsFailures(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(models.Post{ID: 1, Title: "a"})
	boom := errors.New("backend down")
	s.SetHook(func(_ context.Context, op Op) error {
		if op == OpDeletePost {
			return boom
		}
		return nil
	})

	err := s.DeletePost(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, OpDeletePost, storeErr.Op)

	_, err = s.GetPost(context.Background(), 1)
	assert.NoError(t, err)
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, OrderUpvotes, ParseOrder("upvotes"))
	assert.Equal(t, OrderCreatedAt, ParseOrder("created_at"))
	assert.Equal(t, OrderCreatedAt, ParseOrder("bogus"))
}

func titles(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}
