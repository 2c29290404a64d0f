package blob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = &RedisStore{}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

func dataKey(id string) string { return "attachment:" + id + ":data" }
func metaKey(id string) string { return "attachment:" + id + ":meta" }

func (s *RedisStore) Put(ctx context.Context, ownerUserId, contentType string, data []byte) (string, error) {
	id := "attachment_" + uuid.NewString()

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, dataKey(id), data, s.ttl)
	pipe.HSet(ctx, metaKey(id), "contentType", contentType, "userId", ownerUserId)
	pipe.Expire(ctx, metaKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id, requesterUserId string) (*Object, error) {
	meta, err := s.rdb.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 || meta["userId"] != requesterUserId {
		return nil, ErrNotFound
	}

	data, err := s.rdb.Get(ctx, dataKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Object{
		Id:          id,
		ContentType: meta["contentType"],
		OwnerUserId: meta["userId"],
		Data:        data,
	}, nil
}
