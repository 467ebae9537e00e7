package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisLedgerPrefix string = "removals/"

type RedisCountStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCountStore{
		Client: rdb,
		TTL:    DefaultTTL,
	}
	return &rcs, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, install, actor string) (int, error) {
	key := redisLedgerPrefix + actorBucket(install, actor)
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, install, actor string) (int, error) {
	key := redisLedgerPrefix + actorBucket(install, actor)

	// INCR and EXPIRE in a single round-trip; INCR gives us the new value
	// atomically, so concurrent events for the same actor never lose an
	// increment.
	multi := s.Client.Pipeline()
	incr := multi.Incr(ctx, key)
	multi.Expire(ctx, key, s.TTL)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *RedisCountStore) Reset(ctx context.Context, install, actor string) error {
	key := redisLedgerPrefix + actorBucket(install, actor)
	return s.Client.Del(ctx, key).Err()
}
