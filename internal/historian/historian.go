// Package historian drains room events from the Redis queue and persists
// them to PostgreSQL in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued event records. Pop returns nil, nil on timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.EventRecord, error)
}

// Sink persists a batch of records atomically.
type Sink interface {
	InsertEvents(ctx context.Context, records []cache.EventRecord) error
}

// Service accumulates records from a Source and flushes them to a Sink
// when the batch is full or the flush delay elapses.
type Service struct {
	src        Source
	sink       Sink
	log        *logrus.Logger
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration

	batchMu sync.Mutex
	batch   []cache.EventRecord
}

func NewService(src Source, sink Sink, logger *logrus.Logger, batchSize int, flushDelay time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		src:        src,
		sink:       sink,
		log:        logger,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		popTimeout: time.Second,
		batch:      make([]cache.EventRecord, 0, batchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (hs *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	hs.log.Info("historian started")
	for {
		select {
		case <-ctx.Done():
			hs.flush(context.Background())
			hs.log.Info("historian stopped")
			return
		case <-ticker.C:
			hs.flush(ctx)
		default:
			rec, err := hs.src.Pop(ctx, hs.popTimeout)
			if err != nil {
				if ctx.Err() == nil {
					hs.log.WithError(err).Warn("pop event")
				}
				continue
			}
			if rec == nil {
				continue
			}
			hs.append(ctx, *rec)
		}
	}
}

// append adds a record to the in-memory batch and flushes if the threshold is reached.
func (hs *Service) append(ctx context.Context, rec cache.EventRecord) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.batchSize
	hs.batchMu.Unlock()
	if full {
		hs.flush(ctx)
	}
}

// flush writes the current batch. A failed batch is kept for the next try.
func (hs *Service) flush(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return
	}
	batch := make([]cache.EventRecord, len(hs.batch))
	copy(batch, hs.batch)

	if err := hs.sink.InsertEvents(ctx, batch); err != nil {
		hs.log.WithError(err).WithField("size", len(batch)).Error("flush events")
		return
	}
	hs.batch = hs.batch[:0]
	hs.log.WithField("size", len(batch)).Debug("flushed events")
}

// Pending returns the number of records waiting to be flushed.
func (hs *Service) Pending() int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	return len(hs.batch)
}
