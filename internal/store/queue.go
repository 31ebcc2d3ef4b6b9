// Package store provides lead and conversation storage backends for LeadPipe.
//
// This file implements the persist queue that decouples message processing
// from backend writes. Sheet and database writes can be slow or transiently
// failing; the conversation must never wait on them.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// Persist queue tuning constants.
const (
	// DefaultPersistQueueSize bounds the number of pending writes.
	DefaultPersistQueueSize = 256
	// DefaultPersistMaxAttempts is how many times a write is retried
	// before it is dropped with an error log.
	DefaultPersistMaxAttempts = 5
	// persistBaseBackoff is the first retry delay; it doubles per attempt.
	persistBaseBackoff = 2 * time.Second
)

// persistJob is one queued lead write.
type persistJob struct {
	ID      string
	Record  models.LeadRecord
	Attempt int
}

// PersistQueue serializes lead writes to a Store on a background goroutine
// with retry and exponential backoff. Enqueue never blocks the caller.
type PersistQueue struct {
	store       Store
	jobs        chan persistJob
	maxAttempts int
	baseBackoff time.Duration
	wg          sync.WaitGroup
}

// NewPersistQueue creates a persist queue writing to the given store.
func NewPersistQueue(store Store) *PersistQueue {
	return &PersistQueue{
		store:       store,
		jobs:        make(chan persistJob, DefaultPersistQueueSize),
		maxAttempts: DefaultPersistMaxAttempts,
		baseBackoff: persistBaseBackoff,
	}
}

// Enqueue queues a lead record for persistence. When the queue is full the
// write is dropped and logged rather than blocking message processing.
func (q *PersistQueue) Enqueue(rec models.LeadRecord) {
	job := persistJob{ID: uuid.NewString(), Record: rec, Attempt: 0}
	select {
	case q.jobs <- job:
		slog.Debug("PersistQueue.Enqueue: queued lead write", "id", job.ID, "participantID", rec.ParticipantID)
	default:
		slog.Error("PersistQueue.Enqueue: queue full, dropping lead write", "participantID", rec.ParticipantID)
	}
}

// Run starts the write loop. It blocks until the context is cancelled, then
// drains jobs already queued before returning.
func (q *PersistQueue) Run(ctx context.Context) {
	slog.Info("PersistQueue.Run: starting persist queue", "capacity", cap(q.jobs))
	for {
		select {
		case <-ctx.Done():
			q.drain()
			q.wg.Wait()
			slog.Info("PersistQueue.Run: stopping")
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *PersistQueue) process(ctx context.Context, job persistJob) {
	err := q.store.UpsertLead(ctx, job.Record)
	if err == nil {
		slog.Debug("PersistQueue.process: lead persisted", "id", job.ID, "participantID", job.Record.ParticipantID, "attempt", job.Attempt)
		return
	}

	job.Attempt++
	if job.Attempt >= q.maxAttempts {
		slog.Error("PersistQueue.process: giving up on lead write", "id", job.ID, "participantID", job.Record.ParticipantID, "attempts", job.Attempt, "error", err)
		return
	}

	// Exponential backoff: 2s, 4s, 8s, ...
	backoff := q.baseBackoff * time.Duration(1<<(job.Attempt-1))
	slog.Error("PersistQueue.process: lead write failed, retrying", "id", job.ID, "participantID", job.Record.ParticipantID, "attempt", job.Attempt, "backoff", backoff, "error", err)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
			select {
			case q.jobs <- job:
			default:
				slog.Error("PersistQueue.process: queue full on retry, dropping lead write", "id", job.ID)
			}
		}
	}()
}

// drain applies a final write attempt to everything still queued, without
// scheduling further retries.
func (q *PersistQueue) drain() {
	for {
		select {
		case job := <-q.jobs:
			if err := q.store.UpsertLead(context.Background(), job.Record); err != nil {
				slog.Error("PersistQueue.drain: final lead write failed", "id", job.ID, "participantID", job.Record.ParticipantID, "error", err)
			}
		default:
			return
		}
	}
}
