package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Key-set names. Every cached view key is recorded in one of these sets so a
// write can drop all of them without SCAN.
const (
	PostViewsSetKey    = "posts:views:keys"
	ContactViewsSetKey = "contacts:views:keys"
)

// GET /api/posts?view={state}&platform={platform}
// posts:view:{state}:platform={platform}
func PostViewKey(state, platform string) string {
	p := url.PathEscape(strings.TrimSpace(platform))
	if p == "" {
		p = "all"
	}
	return fmt.Sprintf("posts:view:%s:platform=%s", strings.ToLower(state), p)
}

// GET /api/contacts
func ContactsKey() string { return "contacts:all" }

// GET /api/contacts?list_id={id}
func ContactsByListKey(listID int64) string {
	return fmt.Sprintf("contacts:list:%d", listID)
}

// GET /api/lists
func ContactListsKey() string { return "contact_lists:all" }

// Remember stores value under key and records the key in setKey.
func Remember(ctx context.Context, c Cache, setKey, key string, value []byte, ttl time.Duration) error {
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.SAdd(ctx, setKey, key); err != nil {
		return err
	}
	// the set outlives its members by one ttl so stale members are dropped with it
	return c.Expire(ctx, setKey, 2*ttl)
}

// Invalidate deletes every key recorded in setKey and the set itself.
func Invalidate(ctx context.Context, c Cache, setKey string) error {
	keys, err := c.SMembers(ctx, setKey)
	if err != nil {
		return err
	}
	return c.Del(ctx, append(keys, setKey)...)
}
