package kvstore

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type RedisKVStore struct {
	Data *cache.Cache
	TTL  time.Duration
}

var _ KVStore = (*RedisKVStore)(nil)

func NewRedisKVStore(redisURL string, ttl time.Duration) (*RedisKVStore, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	// no process-local cache tier: a removal record written by one
	// replica must be visible to the next read from any replica, and a
	// locally cached miss would defeat the notice-once guard
	data := cache.New(&cache.Options{
		Redis: rdb,
	})
	return &RedisKVStore{
		Data: data,
		TTL:  ttl,
	}, nil
}

func redisKVKey(name, key string) string {
	return "kv/" + name + "/" + key
}

func (s RedisKVStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.Data.Get(ctx, redisKVKey(name, key), &val)
	if err == cache.ErrCacheMiss {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s RedisKVStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisKVKey(name, key),
		Value: val,
		TTL:   s.TTL,
	})
}

func (s RedisKVStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, redisKVKey(name, key))
	if err == cache.ErrCacheMiss {
		return nil
	}
	return err
}
