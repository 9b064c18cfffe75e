package filestore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/tozd/go/errors"
)

const redisKeyPrefix = "ortkod:file:"

// Redis keeps workbooks in redis with a key TTL, so every server instance can
// serve a download.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, data []byte) (string, error) {
	id := ContentID(data)
	if err := r.client.Set(ctx, redisKeyPrefix+id, data, r.ttl).Err(); err != nil {
		return "", errors.Errorf("store file %s: %w", id, err)
	}
	return id, nil
}

func (r *Redis) Get(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, errors.WithStack(ErrNotFound)
	}
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Errorf("load file %s: %w", id, err)
	}
	return data, nil
}
