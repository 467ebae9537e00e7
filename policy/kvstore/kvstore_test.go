package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemKVStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemKVStore(100, time.Hour)

	v, err := kv.Get(ctx, "removal-comment", "post1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(kv.Set(ctx, "removal-comment", "post1", "comment-9"))
	v, err = kv.Get(ctx, "removal-comment", "post1")
	assert.NoError(err)
	assert.Equal("comment-9", v)

	// namespaces don't collide
	v, err = kv.Get(ctx, "scan-job", "post1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(kv.Purge(ctx, "removal-comment", "post1"))
	v, err = kv.Get(ctx, "removal-comment", "post1")
	assert.NoError(err)
	assert.Equal("", v)
}
