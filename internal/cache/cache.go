package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	Close() error
}

// Noop is used when no Redis is configured. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Del(context.Context, ...string) error                     { return nil }
func (Noop) SAdd(context.Context, string, ...string) error            { return nil }
func (Noop) SMembers(context.Context, string) ([]string, error)       { return nil, nil }
func (Noop) Expire(context.Context, string, time.Duration) error      { return nil }
func (Noop) Close() error                                             { return nil }
