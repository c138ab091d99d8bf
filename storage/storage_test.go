package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"labcomm/config"
	"labcomm/storage/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	manager, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, manager.Migrate())
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.ErrorIs(t, err, config.ErrInvalidDatabaseDriver)
}

func TestOpen_InvalidPostgresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "postgres://%zz"})
	assert.Error(t, err)
}

func TestManager_Ping(t *testing.T) {
	manager := newTestManager(t)
	assert.NoError(t, manager.Ping(context.Background()))
}

func TestManager_MigrateIsIdempotent(t *testing.T) {
	manager := newTestManager(t)
	assert.NoError(t, manager.Migrate())
}

func TestManager_PostLifecycle(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	post := &models.Post{Slug: "hello", Title: "Hello", Link: "https://example.org/hello.md", Author: "alice"}
	require.NoError(t, manager.CreatePost(ctx, post))
	assert.NotZero(t, post.ID)

	got, err := manager.GetPost(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "alice", got.Author)

	got.Title = "Hello again"
	got.Slug = "hello-again"
	require.NoError(t, manager.UpdatePost(ctx, &got))

	_, err = manager.GetPost(ctx, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	updated, err := manager.GetPost(ctx, "hello-again")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)

	require.NoError(t, manager.DeletePost(ctx, "hello-again"))
	assert.ErrorIs(t, manager.DeletePost(ctx, "hello-again"), ErrNotFound)

	posts, err := manager.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestManager_CreatePost_Duplicate(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	require.NoError(t, manager.CreatePost(ctx, &models.Post{Slug: "dup", Title: "A", Link: "https://example.org/a.md"}))
	err := manager.CreatePost(ctx, &models.Post{Slug: "dup", Title: "B", Link: "https://example.org/b.md"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestManager_ListPosts_NewestFirst(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	base := time.Date(2014, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, slug := range []string{"old", "newest", "middle"} {
		offset := map[string]time.Duration{"old": 0, "newest": 2 * time.Hour, "middle": time.Hour}[slug]
		post := &models.Post{
			Model: models.Model{CreatedAt: base.Add(offset)},
			Slug:  slug,
			Title: fmt.Sprintf("Post %d", i),
			Link:  "https://example.org/" + slug + ".md",
		}
		require.NoError(t, manager.CreatePost(ctx, post))
	}

	posts, err := manager.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "newest", posts[0].Slug)
	assert.Equal(t, "middle", posts[1].Slug)
	assert.Equal(t, "old", posts[2].Slug)
}

func TestManager_GetPost_NotFound(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.GetPost(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_UpdatePost_NotFound(t *testing.T) {
	manager := newTestManager(t)
	post := &models.Post{Model: models.Model{ID: 42}, Slug: "ghost", Title: "Ghost", Link: "https://example.org/g.md"}
	assert.ErrorIs(t, manager.UpdatePost(context.Background(), post), ErrNotFound)
}

func TestManager_LabRecords(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	lat, lng := 42.36, -71.09
	require.NoError(t, manager.CreateAddress(ctx, &models.LabAddress{Type: "mailing", City: "Cambridge"}))
	require.NoError(t, manager.CreateLocation(ctx, &models.LabLocation{Name: "Main lab", Latitude: &lat, Longitude: &lng, Public: true}))
	require.NoError(t, manager.CreateCommentary(ctx, &models.Commentary{Slug: "note", Title: "Note", Body: "text"}))

	addresses, err := manager.ListAddresses(ctx)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "Cambridge", addresses[0].City)

	locations, err := manager.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.InDelta(t, 42.36, *locations[0].Latitude, 0.0001)

	commentaries, err := manager.ListCommentaries(ctx)
	require.NoError(t, err)
	require.Len(t, commentaries, 1)
}

func TestManager_RevertAndMigrateTo(t *testing.T) {
	manager := newTestManager(t)

	require.NoError(t, manager.Revert(nil))
	_, err := manager.ListPosts(context.Background())
	assert.Error(t, err)

	one := 1
	require.NoError(t, manager.MigrateTo(&one))
	posts, err := manager.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestManager_CloseReleasesConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	manager, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: "file:close?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, manager.Migrate())
	require.NoError(t, manager.Ping(context.Background()))
	require.NoError(t, manager.Close())
}
