package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maheshrc27/contentflow/internal/cache"
)

// readThrough serves key from the cache and falls back to load on a miss.
// Cache failures are logged and never fail the read.
func readThrough[T any](ctx context.Context, c cache.Cache, setKey, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if b, ok, err := c.Get(ctx, key); err != nil {
		slog.Info(err.Error())
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if b, err := json.Marshal(v); err == nil {
		if err := cache.Remember(ctx, c, setKey, key, b, ttl); err != nil {
			slog.Info(err.Error())
		}
	}
	return v, nil
}

func invalidate(ctx context.Context, c cache.Cache, setKey string) {
	if err := cache.Invalidate(ctx, c, setKey); err != nil {
		slog.Info(err.Error())
	}
}
