// Package registry exposes the database-backed pages: the permission gated
// Post CRUD and the read-only lab address and location lists.
package registry

import (
	"context"
	"errors"
	"fmt"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"labcomm/auth"
	"labcomm/config"
	"labcomm/feeds"
	"labcomm/storage"
	"labcomm/storage/models"
	"strings"
)

// ListRoute is where a successful delete sends the caller.
const ListRoute = "/posts/"

const maxSlugLength = 100

type Store interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, slug string) (models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, slug string) error
	ListCommentaries(ctx context.Context) ([]models.Commentary, error)
	ListAddresses(ctx context.Context) ([]models.LabAddress, error)
	ListLocations(ctx context.Context) ([]models.LabLocation, error)
}

// BodySource resolves the external markdown body of a post.
type BodySource interface {
	Body(ctx context.Context, link string) string
}

type PostInput struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Link  string `json:"link"`
}

type Registry struct {
	store   Store
	checker auth.Checker
	bodies  BodySource
}

func New(store Store, checker auth.Checker, bodies BodySource) *Registry {
	return &Registry{store: store, checker: checker, bodies: bodies}
}

func PostURL(postSlug string) string {
	return ListRoute + postSlug + "/"
}

func (r *Registry) ListPosts(ctx context.Context) (feeds.Context, error) {
	posts, err := r.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	commentaries, err := r.store.ListCommentaries(ctx)
	if err != nil {
		return nil, err
	}
	return feeds.Context{
		"post_list":       posts,
		"commentary_list": commentaries,
	}, nil
}

func (r *Registry) PostDetail(ctx context.Context, postSlug string) (feeds.Context, error) {
	post, err := r.getPost(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	return feeds.Context{
		"post":      post,
		"post_data": r.bodies.Body(ctx, post.Link),
	}, nil
}

func (r *Registry) CreatePost(ctx context.Context, user string, input PostInput) (models.Post, error) {
	if err := r.authorize(ctx, user, auth.PermCreatePost); err != nil {
		return models.Post{}, err
	}

	post := models.Post{Author: user}
	if err := apply(&post, input); err != nil {
		return models.Post{}, err
	}
	if err := r.store.CreatePost(ctx, &post); err != nil {
		return models.Post{}, r.translate(err, post.Slug)
	}

	log.WithFields(log.Fields{"user": user, "slug": post.Slug}).Info("Post created")
	return post, nil
}

func (r *Registry) UpdatePost(ctx context.Context, user string, postSlug string, input PostInput) (models.Post, error) {
	if err := r.authorize(ctx, user, auth.PermUpdatePost); err != nil {
		return models.Post{}, err
	}

	post, err := r.getPost(ctx, postSlug)
	if err != nil {
		return models.Post{}, err
	}
	if strings.TrimSpace(input.Slug) == "" {
		input.Slug = post.Slug
	}
	if err := apply(&post, input); err != nil {
		return models.Post{}, err
	}
	if err := r.store.UpdatePost(ctx, &post); err != nil {
		return models.Post{}, r.translate(err, post.Slug)
	}

	log.WithFields(log.Fields{"user": user, "slug": post.Slug}).Info("Post updated")
	return post, nil
}

// DeletePost removes the post and returns the route to redirect to.
func (r *Registry) DeletePost(ctx context.Context, user string, postSlug string) (string, error) {
	if err := r.authorize(ctx, user, auth.PermDeletePost); err != nil {
		return "", err
	}
	if err := r.store.DeletePost(ctx, postSlug); err != nil {
		return "", r.translate(err, postSlug)
	}

	log.WithFields(log.Fields{"user": user, "slug": postSlug}).Info("Post deleted")
	return ListRoute, nil
}

func (r *Registry) ListAddresses(ctx context.Context) (feeds.Context, error) {
	addresses, err := r.store.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	return feeds.Context{"labaddress_list": addresses}, nil
}

func (r *Registry) ListLocations(ctx context.Context) (feeds.Context, error) {
	locations, err := r.store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return feeds.Context{"lablocation_list": locations}, nil
}

func (r *Registry) authorize(ctx context.Context, user string, perm string) error {
	if auth.Allowed(ctx, r.checker, user, perm) {
		return nil
	}
	log.WithFields(log.Fields{"user": user, "permission": perm}).Info("Permission denied")
	return &PermissionError{User: user, Permission: perm}
}

func (r *Registry) getPost(ctx context.Context, postSlug string) (models.Post, error) {
	post, err := r.store.GetPost(ctx, postSlug)
	if err != nil {
		return models.Post{}, r.translate(err, postSlug)
	}
	return post, nil
}

func (r *Registry) translate(err error, postSlug string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &NotFoundError{Entity: "post", Key: postSlug}
	case errors.Is(err, storage.ErrDuplicate):
		return &ConflictError{Slug: postSlug}
	default:
		return fmt.Errorf("post %s: %w", postSlug, err)
	}
}

// apply validates input and copies it onto post. The slug falls back to one
// derived from the title.
func apply(post *models.Post, input PostInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if len(title) > 200 {
		return &ValidationError{Field: "title", Reason: "longer than 200 characters"}
	}

	link := strings.TrimSpace(input.Link)
	if !config.IsAbsoluteHTTPURL(link) {
		return &ValidationError{Field: "link", Reason: "absolute http(s) URL required"}
	}

	postSlug := strings.TrimSpace(input.Slug)
	if postSlug == "" {
		postSlug = deriveSlug(title)
	}
	if !slug.IsSlug(postSlug) {
		return &ValidationError{Field: "slug", Reason: "only lowercase letters, digits and hyphens allowed"}
	}
	if len(postSlug) > maxSlugLength {
		return &ValidationError{Field: "slug", Reason: "longer than 100 characters"}
	}

	post.Title = title
	post.Link = link
	post.Slug = postSlug
	return nil
}

// deriveSlug builds a slug from title, cut to the slug column width.
func deriveSlug(title string) string {
	derived := slug.Make(title)
	if len(derived) > maxSlugLength {
		derived = strings.TrimRight(derived[:maxSlugLength], "-")
	}
	return derived
}
