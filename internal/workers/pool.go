// Package workers wraps named pond.WorkerPools for ChatLake's CPU-bound
// stages, generalized from the teacher's article/general two-pool split
// to one pool per pipeline that parallelizes over points.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/alitto/pond"
	"golang.org/x/sync/errgroup"
)

// PoolConfig sizes each named pool.
type PoolConfig struct {
	IngestionWorkers  int
	ClusteringWorkers int
	SimilarityWorkers int
}

// PoolManager holds one pond pool per CPU-bound stage named in spec §5.
type PoolManager struct {
	Ingestion  *pond.WorkerPool
	Clustering *pond.WorkerPool
	Similarity *pond.WorkerPool
}

// NewPoolManager builds pools sized per cfg, each with a floor of one
// worker and a 30s idle-timeout, matching the teacher's pool defaults.
func NewPoolManager(cfg PoolConfig) *PoolManager {
	newPool := func(workers int) *pond.WorkerPool {
		if workers <= 0 {
			workers = 1
		}
		return pond.New(workers, workers*2, pond.MinWorkers(1), pond.IdleTimeout(30*time.Second))
	}
	return &PoolManager{
		Ingestion:  newPool(cfg.IngestionWorkers),
		Clustering: newPool(cfg.ClusteringWorkers),
		Similarity: newPool(cfg.SimilarityWorkers),
	}
}

// SubmitWithTimeout runs task on pool, recovering panics and returning the
// context's error if it's cancelled or times out before task finishes.
func SubmitWithTimeout(ctx context.Context, pool *pond.WorkerPool, timeout time.Duration, task func()) error {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{}, 1)
	pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("pooled task panicked", "error", r)
			}
			done <- struct{}{}
		}()
		task()
	})

	select {
	case <-done:
		return nil
	case <-taskCtx.Done():
		return taskCtx.Err()
	}
}

// ParallelOverGroup fans work fn out across group g using pool for
// execution, so callers get pond's worker-pool sizing with errgroup's
// first-error propagation and cooperative cancellation (spec §5).
func ParallelOverGroup(ctx context.Context, g *errgroup.Group, pool *pond.WorkerPool, n int, fn func(ctx context.Context, i int) error) {
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			errCh := make(chan error, 1)
			pool.Submit(func() {
				errCh <- fn(ctx, i)
			})
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
}

// Stats reports pond's own counters for each named pool.
func (pm *PoolManager) Stats() map[string]map[string]int {
	snapshot := func(p *pond.WorkerPool) map[string]int {
		return map[string]int{
			"running_workers":  p.RunningWorkers(),
			"idle_workers":     p.IdleWorkers(),
			"submitted_tasks":  int(p.SubmittedTasks()),
			"waiting_tasks":    int(p.WaitingTasks()),
			"successful_tasks": int(p.SuccessfulTasks()),
			"failed_tasks":     int(p.FailedTasks()),
		}
	}
	return map[string]map[string]int{
		"ingestion":  snapshot(pm.Ingestion),
		"clustering": snapshot(pm.Clustering),
		"similarity": snapshot(pm.Similarity),
	}
}

// Shutdown stops every pool, waiting for in-flight tasks to drain.
func (pm *PoolManager) Shutdown() {
	slog.Info("shutting down worker pools")
	pm.Ingestion.StopAndWait()
	pm.Clustering.StopAndWait()
	pm.Similarity.StopAndWait()
	slog.Info("worker pools stopped")
}
