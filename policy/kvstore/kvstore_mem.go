package kvstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemKVStore struct {
	Data *expirable.LRU[string, string]
}

var _ KVStore = (*MemKVStore)(nil)

func NewMemKVStore(capacity int, ttl time.Duration) MemKVStore {
	return MemKVStore{
		Data: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (s MemKVStore) Get(ctx context.Context, name, key string) (string, error) {
	v, ok := s.Data.Get(name + "/" + key)
	if !ok {
		return "", nil
	}
	return v, nil
}

func (s MemKVStore) Set(ctx context.Context, name, key string, val string) error {
	s.Data.Add(name+"/"+key, val)
	return nil
}

func (s MemKVStore) Purge(ctx context.Context, name, key string) error {
	s.Data.Remove(name + "/" + key)
	return nil
}
