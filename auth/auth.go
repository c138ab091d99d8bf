// Package auth answers whether a caller holds a named permission. The caller
// identity itself is established upstream and arrives in a request header.
package auth

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"net/http"
	"strings"
)

const (
	PermCreatePost = "communication.create_post"
	PermUpdatePost = "communication.update_post"
	PermDeletePost = "communication.delete_post"
)

type Checker interface {
	HasPermission(ctx context.Context, user, perm string) (bool, error)
}

// UserFromRequest returns the trimmed identity from header, or "" for anonymous callers.
func UserFromRequest(r *http.Request, header string) string {
	return strings.TrimSpace(r.Header.Get(header))
}

// Allowed asks checker and folds every failure into "not granted".
func Allowed(ctx context.Context, checker Checker, user, perm string) bool {
	if user == "" || checker == nil {
		return false
	}
	ok, err := checker.HasPermission(ctx, user, perm)
	if err != nil {
		log.WithFields(log.Fields{"user": user, "permission": perm}).Errorf("Permission check failed: %v", err)
		return false
	}
	return ok
}

type StaticChecker struct {
	permissions map[string]map[string]struct{}
}

func NewStaticChecker(permissions map[string][]string) *StaticChecker {
	c := &StaticChecker{permissions: make(map[string]map[string]struct{}, len(permissions))}
	for user, perms := range permissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		c.permissions[user] = set
	}
	return c
}

func (c *StaticChecker) HasPermission(_ context.Context, user, perm string) (bool, error) {
	if user == "" {
		return false, nil
	}
	_, ok := c.permissions[user][perm]
	return ok, nil
}

// RedisChecker keeps one set of permission names per user under keyPrefix+user.
type RedisChecker struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisChecker(client *redis.Client, keyPrefix string) *RedisChecker {
	return &RedisChecker{client: client, keyPrefix: keyPrefix}
}

func (c *RedisChecker) HasPermission(ctx context.Context, user, perm string) (bool, error) {
	if user == "" {
		return false, nil
	}
	ok, err := c.client.SIsMember(ctx, c.keyPrefix+user, perm).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check permission %s for %s: %w", perm, user, err)
	}
	return ok, nil
}

// Grant adds perm to the user's set.
func (c *RedisChecker) Grant(ctx context.Context, user, perm string) error {
	if err := c.client.SAdd(ctx, c.keyPrefix+user, perm).Err(); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", perm, user, err)
	}
	return nil
}

func (c *RedisChecker) Revoke(ctx context.Context, user, perm string) error {
	if err := c.client.SRem(ctx, c.keyPrefix+user, perm).Err(); err != nil {
		return fmt.Errorf("failed to revoke %s from %s: %w", perm, user, err)
	}
	return nil
}
