package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mapreviews/harvester/internal/domain/model"
	"github.com/mapreviews/harvester/internal/harvest"
	"github.com/mapreviews/harvester/internal/infra/storage"
)

var (
	// ErrNotFound is returned for job ids the tracker has never seen.
	ErrNotFound = errors.New("job: not found")
	// ErrNotReady is returned when a result is requested before the job
	// completed. Failed jobs are also not ready; their error lives on the
	// job record.
	ErrNotReady = errors.New("job: result not ready")
)

// HarvestFunc is the engine the tracker schedules. It is a function so
// tests can drive the tracker without a browser.
type HarvestFunc func(ctx context.Context, sourceRef string) ([]model.Review, error)

// Tracker owns the process-wide job map. Each submitted job gets exactly
// one background execution which is the sole writer of that job record;
// Status and Result serve snapshots under a read lock.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	harvest HarvestFunc
	store   storage.ResultStore
	// sem caps concurrent harvests: every execution owns a full browser.
	sem    *semaphore.Weighted
	logger zerolog.Logger
}

func NewTracker(harvestFn HarvestFunc, store storage.ResultStore, maxConcurrent int64, logger zerolog.Logger) *Tracker {
	return &Tracker{
		jobs:    make(map[string]*Job),
		harvest: harvestFn,
		store:   store,
		sem:     semaphore.NewWeighted(maxConcurrent),
		logger:  logger.With().Str("component", "tracker").Logger(),
	}
}

// Submit registers a new job and schedules its background execution. It
// returns a snapshot of the queued job immediately.
func (t *Tracker) Submit(sourceRef string) Job {
	j := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		SourceRef: sourceRef,
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.jobs[j.ID] = j
	t.mu.Unlock()

	// Copy before the execution starts: once run is live it owns the
	// record and may already be mutating it.
	snapshot := *j

	t.logger.Info().Str("job_id", j.ID).Str("source", sourceRef).Msg("job queued")
	go t.run(j.ID, sourceRef)

	return snapshot
}

// Status returns a snapshot of the job record.
func (t *Tracker) Status(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Result loads the persisted record list of a completed job.
func (t *Tracker) Result(ctx context.Context, id string) ([]model.Review, error) {
	j, ok := t.Status(id)
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusCompleted {
		return nil, ErrNotReady
	}
	return t.store.Read(ctx, id)
}

// run is the background execution path: exactly one invocation per job,
// and the only writer of that job's record.
func (t *Tracker) run(id, sourceRef string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			// A panicking engine must not take the process down; park the
			// job in failed instead.
			t.fail(id, string(harvest.KindUnclassified), fmt.Sprintf("harvest panicked: %v", r))
		}
	}()

	if err := t.sem.Acquire(ctx, 1); err != nil {
		t.fail(id, string(harvest.KindUnclassified), fmt.Sprintf("acquire harvest slot: %v", err))
		return
	}
	defer t.sem.Release(1)

	started := time.Now().UTC()
	t.update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.StartedAt = &started
	})
	t.logger.Info().Str("job_id", id).Msg("job processing")

	records, err := t.harvest(ctx, sourceRef)
	if err != nil {
		t.fail(id, string(harvest.Classify(err)), err.Error())
		return
	}

	location, err := t.store.Write(ctx, id, records)
	if err != nil {
		t.fail(id, string(harvest.KindUnclassified), fmt.Sprintf("persist result: %v", err))
		return
	}

	completed := time.Now().UTC()
	t.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.CompletedAt = &completed
		j.RecordCount = len(records)
		j.ResultLocation = location
	})
	t.logger.Info().Str("job_id", id).Int("records", len(records)).Msg("job completed")
}

func (t *Tracker) fail(id, kind, msg string) {
	completed := time.Now().UTC()
	t.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.CompletedAt = &completed
		j.Error = msg
		j.ErrorKind = kind
	})
	t.logger.Error().Str("job_id", id).Str("error_kind", kind).Str("error", msg).Msg("job failed")
}

func (t *Tracker) update(id string, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok || j.Status.Terminal() {
		return
	}
	fn(j)
}
