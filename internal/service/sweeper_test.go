package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raisket/audittrail/internal/model"
)

func seedForSweep(store *memStore, eventType string, age time.Duration, retentionYears int, requiresRetention bool) {
	ev := model.NewAuditEvent()
	ev.RequestID = eventType + "-" + age.String()
	ev.EventType = eventType
	ev.Category = model.CategorySystemOperation
	ev.Timestamp = time.Now().UTC().Add(-age)
	ev.RetentionYears = retentionYears
	ev.RequiresRetention = requiresRetention
	_ = store.Insert(context.Background(), &ev)
}

func TestSweepDeletesOnlyExpiredNonRetained(t *testing.T) {
	store := newMemStore()
	year := 365 * 24 * time.Hour

	seedForSweep(store, "OLD_DISPOSABLE", 6*year, 5, false)  // expired, deletable
	seedForSweep(store, "OLD_RETAINED", 6*year, 5, true)     // expired but held
	seedForSweep(store, "FRESH_DISPOSABLE", 1*year, 5, false) // inside window
	seedForSweep(store, "OLD_LONG_POLICY", 6*year, 10, false) // longer policy

	s := NewSweeper(store, nil, time.Hour)
	s.RunOnce(context.Background())

	assert.Empty(t, store.find("OLD_DISPOSABLE"))
	assert.Len(t, store.find("OLD_RETAINED"), 1)
	assert.Len(t, store.find("FRESH_DISPOSABLE"), 1)
	assert.Len(t, store.find("OLD_LONG_POLICY"), 1)
}

func TestSweepEmitsEventOnlyWhenRecordsDeleted(t *testing.T) {
	store := newMemStore()
	reg := NewRuleRegistry(NewStaticRuleSource(nil))
	require.NoError(t, reg.Reload(context.Background()))
	pipeline := NewPipeline(reg, nil, store, nil, nil)

	s := NewSweeper(store, pipeline, time.Hour)

	// Idle sweep: nothing expired, no summary event.
	s.RunOnce(context.Background())
	assert.Empty(t, store.find("RETENTION_SWEEP"))

	seedForSweep(store, "OLD_DISPOSABLE", 6*365*24*time.Hour, 5, false)
	s.RunOnce(context.Background())

	summaries := store.find("RETENTION_SWEEP")
	require.Len(t, summaries, 1)
	assert.Equal(t, model.CategorySystemOperation, summaries[0].Category)
	assert.Equal(t, int64(1), summaries[0].RequestData["deleted_count"])
}

func TestSweepSingleFlight(t *testing.T) {
	store := newMemStore()
	hold := make(chan struct{})
	store.deleteHold = hold

	s := NewSweeper(store, nil, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunOnce(context.Background())
	}()

	// Let the first sweep reach DeleteExpired and park there.
	time.Sleep(20 * time.Millisecond)

	// Overlapping sweep must return immediately instead of queueing.
	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overlapping sweep blocked instead of skipping")
	}

	close(hold)
	wg.Wait()
}

func TestSweeperStartStop(t *testing.T) {
	store := newMemStore()
	s := NewSweeper(store, nil, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	// Stop is idempotent enough to call after the loop has exited.
	select {
	case <-s.done:
	default:
		t.Fatal("sweeper loop still running after Stop")
	}
}
