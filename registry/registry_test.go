package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labcomm/auth"
	"labcomm/config"
	"labcomm/storage"
	"labcomm/storage/models"
)

// countingStore records every store call so tests can assert the store was
// left alone.
type countingStore struct {
	*storage.Manager
	calls []string
}

func (s *countingStore) GetPost(ctx context.Context, slug string) (models.Post, error) {
	s.calls = append(s.calls, "GetPost")
	return s.Manager.GetPost(ctx, slug)
}

func (s *countingStore) CreatePost(ctx context.Context, post *models.Post) error {
	s.calls = append(s.calls, "CreatePost")
	return s.Manager.CreatePost(ctx, post)
}

func (s *countingStore) UpdatePost(ctx context.Context, post *models.Post) error {
	s.calls = append(s.calls, "UpdatePost")
	return s.Manager.UpdatePost(ctx, post)
}

func (s *countingStore) DeletePost(ctx context.Context, slug string) error {
	s.calls = append(s.calls, "DeletePost")
	return s.Manager.DeletePost(ctx, slug)
}

type MockBodySource struct {
	BodyFunc func(ctx context.Context, link string) string
}

func (m *MockBodySource) Body(ctx context.Context, link string) string {
	return m.BodyFunc(ctx, link)
}

type MockChecker struct {
	HasPermissionFunc func(ctx context.Context, user, perm string) (bool, error)
}

func (m *MockChecker) HasPermission(ctx context.Context, user, perm string) (bool, error) {
	return m.HasPermissionFunc(ctx, user, perm)
}

func newTestRegistry(t *testing.T) (*Registry, *countingStore) {
	t.Helper()
	manager, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	})
	require.NoError(t, err)
	require.NoError(t, manager.Migrate())
	t.Cleanup(func() { manager.Close() })

	store := &countingStore{Manager: manager}
	checker := auth.NewStaticChecker(map[string][]string{
		"editor": {auth.PermCreatePost, auth.PermUpdatePost, auth.PermDeletePost},
		"writer": {auth.PermCreatePost},
	})
	bodies := &MockBodySource{BodyFunc: func(ctx context.Context, link string) string {
		return "body of " + link
	}}
	return New(store, checker, bodies), store
}

func seedPost(t *testing.T, store *countingStore, slug string) models.Post {
	t.Helper()
	post := models.Post{Slug: slug, Title: "Post " + slug, Link: "https://example.org/" + slug + ".md", Author: "editor"}
	require.NoError(t, store.Manager.CreatePost(context.Background(), &post))
	return post
}

func TestRegistry_ListPosts(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedPost(t, store, "first")
	seedPost(t, store, "second")
	require.NoError(t, store.CreateCommentary(context.Background(), &models.Commentary{Slug: "c", Title: "C"}))

	result, err := reg.ListPosts(context.Background())
	require.NoError(t, err)

	posts := result["post_list"].([]models.Post)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Slug)
	assert.Len(t, result["commentary_list"], 1)
}

func TestRegistry_PostDetail(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedPost(t, store, "hello")

	result, err := reg.PostDetail(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", result["post"].(models.Post).Slug)
	assert.Equal(t, "body of https://example.org/hello.md", result["post_data"])
}

func TestRegistry_PostDetail_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.PostDetail(context.Background(), "missing")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.Key)
}

func TestRegistry_CreatePost(t *testing.T) {
	reg, _ := newTestRegistry(t)

	post, err := reg.CreatePost(context.Background(), "writer", PostInput{
		Title: "New Paper Accepted!",
		Link:  "https://example.org/paper.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-paper-accepted", post.Slug)
	assert.Equal(t, "writer", post.Author)
	assert.NotZero(t, post.ID)
	assert.Equal(t, "/posts/new-paper-accepted/", PostURL(post.Slug))
}

func TestRegistry_CreatePost_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input PostInput
		field string
	}{
		{"missing title", PostInput{Link: "https://example.org/a.md"}, "title"},
		{"relative link", PostInput{Title: "A", Link: "a.md"}, "link"},
		{"bad scheme", PostInput{Title: "A", Link: "ftp://example.org/a.md"}, "link"},
		{"bad slug", PostInput{Title: "A", Slug: "Not A Slug", Link: "https://example.org/a.md"}, "slug"},
		{"title without slug characters", PostInput{Title: "!!!", Link: "https://example.org/a.md"}, "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, store := newTestRegistry(t)

			_, err := reg.CreatePost(context.Background(), "editor", tt.input)
			var validation *ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Equal(t, tt.field, validation.Field)
			assert.Empty(t, store.calls)
		})
	}
}

func TestRegistry_CreatePost_Conflict(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedPost(t, store, "taken")

	_, err := reg.CreatePost(context.Background(), "editor", PostInput{
		Title: "Other", Slug: "taken", Link: "https://example.org/other.md",
	})
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "taken", conflict.Slug)
}

func TestRegistry_PermissionCheckedFirst(t *testing.T) {
	ctx := context.Background()
	input := PostInput{Title: "T", Link: "https://example.org/t.md"}

	tests := []struct {
		name string
		user string
		call func(reg *Registry, user string) error
	}{
		{"create anonymous", "", func(reg *Registry, user string) error {
			_, err := reg.CreatePost(ctx, user, input)
			return err
		}},
		{"update without permission", "writer", func(reg *Registry, user string) error {
			_, err := reg.UpdatePost(ctx, user, "missing", input)
			return err
		}},
		{"delete without permission", "writer", func(reg *Registry, user string) error {
			_, err := reg.DeletePost(ctx, user, "missing")
			return err
		}},
		{"delete unknown user", "stranger", func(reg *Registry, user string) error {
			_, err := reg.DeletePost(ctx, user, "missing")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, store := newTestRegistry(t)

			err := tt.call(reg, tt.user)
			var permErr *PermissionError
			require.True(t, errors.As(err, &permErr))
			assert.Equal(t, tt.user, permErr.User)
			assert.Empty(t, store.calls)
		})
	}
}

func TestRegistry_CheckerErrorDenies(t *testing.T) {
	reg, store := newTestRegistry(t)
	reg.checker = &MockChecker{HasPermissionFunc: func(ctx context.Context, user, perm string) (bool, error) {
		return true, errors.New("redis down")
	}}
	seedPost(t, store, "kept")

	_, err := reg.DeletePost(context.Background(), "editor", "kept")
	var permErr *PermissionError
	require.True(t, errors.As(err, &permErr))

	_, err = store.Manager.GetPost(context.Background(), "kept")
	assert.NoError(t, err)
}

func TestRegistry_UpdatePost(t *testing.T) {
	reg, store := newTestRegistry(t)
	original := seedPost(t, store, "draft")

	post, err := reg.UpdatePost(context.Background(), "editor", "draft", PostInput{
		Title: "Final", Link: "https://example.org/final.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", post.Slug)
	assert.Equal(t, original.ID, post.ID)
	assert.Equal(t, "editor", post.Author)

	stored, err := store.Manager.GetPost(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, "Final", stored.Title)
	assert.Equal(t, "https://example.org/final.md", stored.Link)
}

func TestRegistry_UpdatePost_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.UpdatePost(context.Background(), "editor", "missing", PostInput{
		Title: "T", Link: "https://example.org/t.md",
	})
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRegistry_UpdatePost_SlugConflict(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedPost(t, store, "one")
	seedPost(t, store, "two")

	_, err := reg.UpdatePost(context.Background(), "editor", "two", PostInput{
		Title: "T", Slug: "one", Link: "https://example.org/t.md",
	})
	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestRegistry_DeletePost(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedPost(t, store, "gone")

	redirect, err := reg.DeletePost(context.Background(), "editor", "gone")
	require.NoError(t, err)
	assert.Equal(t, "/posts/", redirect)

	_, err = store.Manager.GetPost(context.Background(), "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = reg.DeletePost(context.Background(), "editor", "gone")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRegistry_LabRecords(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, store.CreateAddress(ctx, &models.LabAddress{Type: "mailing"}))
	require.NoError(t, store.CreateLocation(ctx, &models.LabLocation{Name: "Wet lab"}))

	addresses, err := reg.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Len(t, addresses["labaddress_list"], 1)

	locations, err := reg.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations["lablocation_list"], 1)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `post "x" not found`, (&NotFoundError{Entity: "post", Key: "x"}).Error())
	assert.Contains(t, (&PermissionError{Permission: auth.PermCreatePost}).Error(), "anonymous")
	assert.Equal(t, "invalid title: required", (&ValidationError{Field: "title", Reason: "required"}).Error())
}

func TestRegistry_CreatePost_LongTitleDerivesShortenedSlug(t *testing.T) {
	reg, _ := newTestRegistry(t)
	title := strings.TrimSpace(strings.Repeat("word ", 30))
	require.Len(t, title, 149)

	post, err := reg.CreatePost(context.Background(), "editor", PostInput{
		Title: title,
		Link:  "https://example.org/p.md",
	})
	require.NoError(t, err)
	assert.Equal(t, title, post.Title)
	assert.LessOrEqual(t, len(post.Slug), 100)
	assert.True(t, strings.HasPrefix(post.Slug, "word-word-"))
	assert.False(t, strings.HasSuffix(post.Slug, "-"))
}

func TestRegistry_CreatePost_ExplicitSlugTooLong(t *testing.T) {
	reg, store := newTestRegistry(t)

	_, err := reg.CreatePost(context.Background(), "editor", PostInput{
		Title: "Short",
		Slug:  strings.Repeat("a", 101),
		Link:  "https://example.org/p.md",
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "slug", validation.Field)
	assert.Empty(t, store.calls)
}

func TestDeriveSlug(t *testing.T) {
	assert.Equal(t, "new-paper-accepted", deriveSlug("New Paper Accepted!"))

	// "word-" repeated puts a hyphen at index 99, which must not survive the cut.
	derived := deriveSlug(strings.Repeat("word ", 30))
	assert.Len(t, derived, 99)
	assert.Equal(t, "word", derived[len(derived)-4:])
}
