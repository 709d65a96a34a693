package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/metrics"
	"agro-herders-service/internal/repository"
)

var ErrAuditClosed = errors.New("audit writer closed")

const (
	auditWriteTimeout  = 5 * time.Second
	auditWriteAttempts = 3
)

// AuditWriter serializes verification audit inserts through one goroutine.
// Records carry an idempotency key, so a retried insert never duplicates.
type AuditWriter struct {
	store   AuditStore
	queue   chan agro.AuditRecord
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAuditWriter(store AuditStore, queueSize int, log zerolog.Logger, m *metrics.Metrics) *AuditWriter {
	if queueSize <= 0 {
		queueSize = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	w := &AuditWriter{
		store:   store,
		queue:   make(chan agro.AuditRecord, queueSize),
		log:     log.With().Str("component", "audit").Logger(),
		metrics: m,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue hands rec to the writer. It blocks while the queue is full until
// ctx is done. Missing idempotency keys and timestamps are filled in.
func (w *AuditWriter) Enqueue(ctx context.Context, rec agro.AuditRecord) error {
	if rec.IdempotencyKey == "" {
		rec.IdempotencyKey = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrAuditClosed
	}

	select {
	case w.queue <- rec:
		w.metrics.SetAuditQueueDepth(len(w.queue))
		return nil
	case <-ctx.Done():
		w.metrics.RecordAuditWrite("dropped")
		return ctx.Err()
	}
}

// Close stops accepting records and waits until the queue is drained or ctx
// expires.
func (w *AuditWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AuditWriter) run() {
	defer close(w.done)
	for rec := range w.queue {
		w.metrics.SetAuditQueueDepth(len(w.queue))
		w.write(rec)
	}
}

func (w *AuditWriter) write(rec agro.AuditRecord) {
	var inserted bool
	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		var err error
		inserted, err = w.store.Insert(ctx, rec)
		if err != nil && !errors.Is(err, repository.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), auditWriteAttempts-1))

	switch {
	case err != nil:
		w.metrics.RecordAuditWrite("error")
		w.log.Error().
			Err(err).
			Str("idempotency_key", rec.IdempotencyKey).
			Str("type", string(rec.VerificationType)).
			Msg("failed to write audit record")
	case !inserted:
		w.metrics.RecordAuditWrite("duplicate")
		w.log.Debug().
			Str("idempotency_key", rec.IdempotencyKey).
			Msg("audit record already written")
	default:
		w.metrics.RecordAuditWrite("written")
		w.log.Debug().
			Str("idempotency_key", rec.IdempotencyKey).
			Str("type", string(rec.VerificationType)).
			Str("result", string(rec.Result)).
			Msg("audit record written")
	}
}
