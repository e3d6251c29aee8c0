// Package rediscache memoizes transcripts in Redis in front of another fetcher.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ytchat/internal/domain"
	"ytchat/internal/logger"
)

const keyPrefix = "ytchat:transcript:"

// Store is the subset of *redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Fetcher struct {
	next  domain.TranscriptFetcher
	store Store
	ttl   time.Duration
	log   *logger.Logger
}

func New(next domain.TranscriptFetcher, store Store, ttl time.Duration, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{next: next, store: store, ttl: ttl, log: log}
}

func Key(videoID, lang string) string {
	return keyPrefix + lang + ":" + videoID
}

// Fetch serves from Redis when possible. Redis failures degrade to a direct fetch.
// Errors from the wrapped fetcher are never cached.
func (f *Fetcher) Fetch(ctx context.Context, videoID, lang string) (string, error) {
	key := Key(videoID, lang)
	val, err := f.store.Get(ctx, key).Result()
	switch {
	case err == nil && val != "":
		f.log.Debug("transcript cache hit", "video_id", videoID)
		return val, nil
	case err != nil && !errors.Is(err, redis.Nil):
		f.log.Warn("transcript cache read failed", "video_id", videoID, "error", err)
	}

	text, err := f.next.Fetch(ctx, videoID, lang)
	if err != nil {
		return "", err
	}
	if text == "" {
		return text, nil
	}
	if err := f.store.Set(ctx, key, text, f.ttl).Err(); err != nil {
		f.log.Warn("transcript cache write failed", "video_id", videoID, "error", err)
	}
	return text, nil
}
