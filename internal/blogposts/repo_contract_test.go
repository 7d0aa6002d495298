package blogposts_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/blogposts/internal/blogposts"
)

// runRepoContract checks the behaviour every store backend has to share.
// The repo is dropped before and after.
func runRepoContract(t *testing.T, repo blogposts.Repo, unknownID string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.Drop(ctx))
	t.Cleanup(func() {
		assert.NoError(t, repo.Drop(context.Background()))
	})

	t.Run("EmptyStore", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		posts, err := repo.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("AddGetDelete", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		p1 := &blogposts.BlogPost{
			Author:  blogposts.Author{FirstName: "Ada", LastName: "Lovelace"},
			Title:   "b1",
			Content: "content1",
		}
		p2 := &blogposts.BlogPost{
			Author:  blogposts.Author{FirstName: "Alan", LastName: "Turing"},
			Title:   "b2",
			Content: "content2",
		}
		require.NoError(t, repo.Add(ctx, p1))
		require.NoError(t, repo.Add(ctx, p2))

		require.NotEmpty(t, p1.ID)
		require.NotEmpty(t, p2.ID)
		assert.NotEqual(t, p1.ID, p2.ID)
		assert.True(t, before.Before(p1.Created), "%v should be before %v", before, p1.Created)
		assert.Equal(t, time.UTC, p1.Created.Location())

		got, err := repo.Get(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, p1.ID, got.ID)
		assert.Equal(t, p1.Author, got.Author)
		assert.Equal(t, p1.Title, got.Title)
		assert.Equal(t, p1.Content, got.Content)
		assert.True(t, p1.Created.Equal(got.Created), "%v != %v", p1.Created, got.Created)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, repo.Delete(ctx, p1.ID))
		_, err = repo.Get(ctx, p1.ID)
		assert.ErrorIs(t, err, blogposts.ErrPostNotFound)

		// idempotent delete, unknown and malformed ids included
		require.NoError(t, repo.Delete(ctx, p1.ID))
		require.NoError(t, repo.Delete(ctx, unknownID))
		require.NoError(t, repo.Delete(ctx, "not-an-id"))

		count, err = repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, repo.Drop(ctx))
	})

	t.Run("LongTitle", func(t *testing.T) {
		long := &blogposts.BlogPost{
			Author:  blogposts.Author{FirstName: "Ada", LastName: "Lovelace"},
			Title:   strings.Repeat("long title ", 100),
			Content: strings.Repeat("c", 64*1024),
		}
		require.NoError(t, repo.Add(ctx, long))
		t.Cleanup(func() {
			assert.NoError(t, repo.Delete(context.Background(), long.ID))
		})

		longTitle := strings.Repeat("t", 2048)
		require.NoError(t, repo.Update(ctx, long.ID, blogposts.PostUpdate{Title: &longTitle}))

		got, err := repo.Get(ctx, long.ID)
		require.NoError(t, err)
		assert.Equal(t, longTitle, got.Title)
		assert.Equal(t, long.Content, got.Content)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		_, err := repo.Get(ctx, unknownID)
		assert.ErrorIs(t, err, blogposts.ErrPostNotFound)
		_, err = repo.Get(ctx, "not-an-id")
		assert.ErrorIs(t, err, blogposts.ErrPostNotFound)
	})

	t.Run("AllNewestFirst", func(t *testing.T) {
		now := time.Now()
		var posts []*blogposts.BlogPost
		for i := 0; i < 5; i++ {
			posts = append(posts, &blogposts.BlogPost{
				Author:  blogposts.Author{FirstName: "F", LastName: "L"},
				Title:   uuid.NewString(),
				Content: "c",
				Created: now.Add(time.Duration(i) * time.Minute),
			})
		}
		require.NoError(t, repo.AddMany(ctx, posts))

		all, err := repo.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := range all {
			assert.Equal(t, posts[4-i].ID, all[i].ID)
			assert.Equal(t, posts[4-i].Title, all[i].Title)
		}

		require.NoError(t, repo.Drop(ctx))
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		post := &blogposts.BlogPost{
			Author:  blogposts.Author{FirstName: "Grace", LastName: "Hopper"},
			Title:   "before",
			Content: "before content",
		}
		require.NoError(t, repo.Add(ctx, post))

		title := "foofofofofofo"
		content := "barbarbarbar"
		require.NoError(t, repo.Update(ctx, post.ID, blogposts.PostUpdate{Title: &title, Content: &content}))

		got, err := repo.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, content, got.Content)
		assert.Equal(t, post.Author, got.Author)
		assert.True(t, post.Created.Equal(got.Created))

		author := blogposts.Author{FirstName: "Jane", LastName: "Doe"}
		require.NoError(t, repo.Update(ctx, post.ID, blogposts.PostUpdate{Author: &author}))
		got, err = repo.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, author, got.Author)
		assert.Equal(t, title, got.Title)

		// empty update only checks existence
		require.NoError(t, repo.Update(ctx, post.ID, blogposts.PostUpdate{}))

		assert.ErrorIs(t, repo.Update(ctx, unknownID, blogposts.PostUpdate{Title: &title}), blogposts.ErrPostNotFound)
		assert.ErrorIs(t, repo.Update(ctx, unknownID, blogposts.PostUpdate{}), blogposts.ErrPostNotFound)
		assert.ErrorIs(t, repo.Update(ctx, "not-an-id", blogposts.PostUpdate{Title: &title}), blogposts.ErrPostNotFound)

		require.NoError(t, repo.Drop(ctx))
	})

	t.Run("SeedFakePosts", func(t *testing.T) {
		seeded, err := blogposts.SeedFakePosts(ctx, repo, 10)
		require.NoError(t, err)
		require.Len(t, seeded, 10)

		ids := map[string]bool{}
		for _, post := range seeded {
			require.NotEmpty(t, post.ID)
			ids[post.ID] = true
			assert.NotEmpty(t, post.Author.FirstName)
			assert.NotEmpty(t, post.Author.LastName)
			assert.NotEmpty(t, post.Title)
			assert.NotEmpty(t, post.Content)
		}
		assert.Len(t, ids, 10)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, count)

		require.NoError(t, repo.Drop(ctx))
	})
}
