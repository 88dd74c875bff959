// Package progress records how far a video job has got, for clients that poll.
package progress

import (
	"context"
	"math"
	"sync"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"go.uber.org/zap"
)

// Tracker writes whole progress records to a store. Updates never lower the
// value last written for a job and are dropped once the job is done or failed.
type Tracker struct {
	store  port.ProgressStore
	logger *zap.Logger

	mu   sync.Mutex
	last map[string]entity.Progress
}

func NewTracker(store port.ProgressStore, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger, last: make(map[string]entity.Progress)}
}

func (t *Tracker) Start(ctx context.Context, jobID string) error {
	return t.write(ctx, jobID, entity.NewProgress(0, entity.StageStarting), true)
}

// Update records that current of total frames are finished.
func (t *Tracker) Update(ctx context.Context, jobID string, current, total int) error {
	return t.write(ctx, jobID, entity.NewProgress(Percent(current, total), entity.StageProcessing), false)
}

func (t *Tracker) Complete(ctx context.Context, jobID string) error {
	return t.write(ctx, jobID, entity.NewProgress(100, entity.StageDone), false)
}

func (t *Tracker) Fail(ctx context.Context, jobID string) error {
	return t.write(ctx, jobID, entity.NewProgress(0, entity.StageFailed), false)
}

// Read never fails: unknown jobs report "initializing", unreadable records "unknown".
func (t *Tracker) Read(ctx context.Context, jobID string) entity.Progress {
	p, found, err := t.store.Read(ctx, jobID)
	if err != nil {
		t.logger.Warn("unreadable progress record", zap.String("job_id", jobID), zap.Error(err))
		return entity.Progress{Progress: 0, Stage: entity.StageUnknown}
	}
	if !found {
		return entity.InitializingProgress()
	}
	return p
}

// Forget drops the in-memory record for a job whose progress file was removed.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	delete(t.last, jobID)
	t.mu.Unlock()
}

func (t *Tracker) write(ctx context.Context, jobID string, next entity.Progress, reset bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.last[jobID]
	if !ok && !reset {
		if stored, found, err := t.store.Read(ctx, jobID); err == nil && found {
			prev, ok = stored, true
		}
	}
	if ok && !reset {
		if prev.IsTerminal() {
			return nil
		}
		if next.Stage == entity.StageProcessing && next.Progress < prev.Progress {
			return nil
		}
	}

	if err := t.store.Write(ctx, jobID, next); err != nil {
		return err
	}
	// Terminal records are re-read from the store if a late update arrives.
	if next.IsTerminal() {
		delete(t.last, jobID)
	} else {
		t.last[jobID] = next
	}
	return nil
}

// Percent is 100*current/total rounded to one decimal and capped at 100.
func Percent(current, total int) float64 {
	if total < 1 {
		total = 1
	}
	if current < 0 {
		current = 0
	}
	p := math.Round(float64(current)/float64(total)*1000) / 10
	return math.Min(p, 100)
}
