// Package scheduler registers the recurring feed-scan invocation. The
// single active job id per installation is stored in the engine's
// key-value store and replaced, never accumulated, on each (re)install.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modwatch/modwatch/policy/kvstore"
)

// kvstore namespace for the active scan-job id, keyed by installation.
const nsScanJob = "scan-job"

type Job func(ctx context.Context)

type Registrar interface {
	// Begins invoking job on the given interval and returns an opaque
	// job id.
	Schedule(name string, every time.Duration, job Job) (string, error)
	// Stops the identified job. Canceling an unknown or already-canceled
	// id is a no-op.
	Cancel(id string) error
}

// TickerRegistrar runs jobs on plain tickers inside the process.
type TickerRegistrar struct {
	Logger *slog.Logger

	mu   sync.Mutex
	seq  int
	jobs map[string]context.CancelFunc
}

var _ Registrar = (*TickerRegistrar)(nil)

func NewTickerRegistrar(logger *slog.Logger) *TickerRegistrar {
	return &TickerRegistrar{
		Logger: logger,
		jobs:   make(map[string]context.CancelFunc),
	}
}

func (r *TickerRegistrar) Schedule(name string, every time.Duration, job Job) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := fmt.Sprintf("%s/%d", name, r.seq)
	ctx, cancel := context.WithCancel(context.Background())
	r.jobs[id] = cancel

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				job(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	r.Logger.Info("scheduled recurring job", "id", id, "every", every)
	return id, nil
}

func (r *TickerRegistrar) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.jobs[id]
	if !ok {
		return nil
	}
	cancel()
	delete(r.jobs, id)
	return nil
}

// ReplaceScanJob idempotently installs the periodic feed-scan job for an
// installation: any prior registration recorded in the store is canceled
// first, and the new job id is recorded in its place.
func ReplaceScanJob(ctx context.Context, reg Registrar, records kvstore.KVStore, install string, every time.Duration, job Job) (string, error) {
	old, err := records.Get(ctx, nsScanJob, install)
	if err != nil {
		return "", fmt.Errorf("reading prior scan job id: %w", err)
	}
	if old != "" {
		if err := reg.Cancel(old); err != nil {
			return "", fmt.Errorf("canceling stale scan job: %w", err)
		}
	}

	id, err := reg.Schedule("feed-scan/"+install, every, job)
	if err != nil {
		return "", fmt.Errorf("scheduling feed scan: %w", err)
	}
	if err := records.Set(ctx, nsScanJob, install, id); err != nil {
		return "", fmt.Errorf("recording scan job id: %w", err)
	}
	return id, nil
}
