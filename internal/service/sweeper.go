package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/logger"
	"github.com/raisket/audittrail/internal/pkg/metrics"
)

// Sweeper deletes expired, non-retained records on a fixed interval.
// It never deletes a record with requires_retention = true, never blocks
// the request path, and its failures are caught and logged without
// terminating the process.
type Sweeper struct {
	store    EventStore
	pipeline *Pipeline
	interval time.Duration
	log      *slog.Logger

	// running is the single-flight guard: a tick arriving while a sweep
	// is still in progress is skipped.
	running sync.Mutex

	stop   context.CancelFunc
	done   chan struct{}
	now    func() time.Time
}

func NewSweeper(store EventStore, pipeline *Pipeline, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		store:    store,
		pipeline: pipeline,
		interval: interval,
		log:      logger.Component("retention_sweeper"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the background sweep loop. Stop cancels it; the
// cancellation takes effect at the next tick.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.log.Info("retention sweeper started", "interval", s.interval)
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
}

// sweep runs one pass. Exported behavior is covered through Sweeper
// tests calling RunOnce.
func (s *Sweeper) sweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Warn("previous sweep still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	start := s.now()
	deleted, err := s.store.DeleteExpired(ctx, start)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error("retention sweep failed", "error", err)
		return
	}
	if deleted == 0 {
		return
	}

	metrics.SweepDeleted.Add(float64(deleted))
	s.log.Info("retention sweep complete", "deleted", deleted)

	// Only sweeps that actually removed records leave an audit event,
	// so idle cycles generate no noise.
	if s.pipeline != nil {
		ev := model.NewAuditEvent()
		ev.EventType = "RETENTION_SWEEP"
		ev.Category = model.CategorySystemOperation
		ev.Description = "retention sweep deleted expired audit records"
		ev.RequestData = map[string]interface{}{
			"deleted_count": deleted,
			"swept_at":      start.Format(time.RFC3339),
		}
		if err := s.pipeline.LogEvent(ctx, &ev); err != nil {
			s.log.Error("sweep summary event not persisted", "error", err)
		}
	}
}

// RunOnce performs a single sweep synchronously, honoring the
// single-flight guard. Used by tests and operator tooling.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.sweep(ctx)
}
