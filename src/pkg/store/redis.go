package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

// RedisStore keeps the catalog JSON document under a single key, without expiration.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (entries []catalog.Entry, e *xerr.Error) {
	data, getErr := s.client.Get(ctx, s.key).Result()
	if errors.Is(getErr, redis.Nil) {
		tl.Log(tl.Info, palette.Purple, "Redis key '%s' does not exist yet, starting %s", s.key, "empty")
		return make([]catalog.Entry, 0), e
	}
	if getErr != nil {
		e = xerr.NewError(getErr, "get catalog from redis", s.key)
		return nil, e
	}

	return decodeDocument([]byte(data))
}

// Save replaces the document with one SET, which redis applies atomically.
func (s *RedisStore) Save(ctx context.Context, entries []catalog.Entry) (e *xerr.Error) {
	document, e := encodeDocument(entries)
	if e != nil {
		return e
	}

	setErr := s.client.Set(ctx, s.key, string(document), 0).Err()
	if setErr != nil {
		e = xerr.NewError(setErr, "set catalog in redis", s.key)
		return e
	}

	tl.Log(tl.Verbose, palette.CyanDim, "Stored %d entries under redis key '%s'", len(entries), s.key)
	return e
}
