package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modwatch/modwatch/policy/kvstore"
)

// fake registrar recording schedule/cancel calls
type fakeRegistrar struct {
	mu        sync.Mutex
	seq       int
	scheduled []string
	canceled  []string
}

func (f *fakeRegistrar) Schedule(name string, every time.Duration, job Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := name + "/" + strconv.Itoa(f.seq)
	f.scheduled = append(f.scheduled, id)
	return id, nil
}

func (f *fakeRegistrar) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	return nil
}

func TestReplaceScanJob(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	reg := &fakeRegistrar{}
	records := kvstore.NewMemKVStore(10, time.Hour)

	id1, err := ReplaceScanJob(ctx, reg, records, "r/test", 10*time.Minute, func(context.Context) {})
	require.NoError(err)
	assert.Empty(reg.canceled)

	stored, err := records.Get(ctx, nsScanJob, "r/test")
	require.NoError(err)
	assert.Equal(id1, stored)

	// replacing cancels the stale registration and stores the new id
	id2, err := ReplaceScanJob(ctx, reg, records, "r/test", 10*time.Minute, func(context.Context) {})
	require.NoError(err)
	assert.NotEqual(id1, id2)
	assert.Equal([]string{id1}, reg.canceled)
	stored, err = records.Get(ctx, nsScanJob, "r/test")
	require.NoError(err)
	assert.Equal(id2, stored)
}

func TestTickerRegistrar(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := NewTickerRegistrar(slog.Default())

	fired := make(chan struct{}, 16)
	id, err := reg.Schedule("test", 5*time.Millisecond, func(context.Context) {
		fired <- struct{}{}
	})
	require.NoError(err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never fired")
	}

	require.NoError(reg.Cancel(id))
	// canceling twice is a no-op
	assert.NoError(reg.Cancel(id))
}
