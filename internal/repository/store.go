package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"

	"agro-herders-service/internal/metrics"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrUnavailable = errors.New("store unavailable")
)

type Options struct {
	QueryTimeout time.Duration
	MaxRetries   uint64
	Metrics      *metrics.Metrics
}

// store wraps every call in a per-call timeout. Reads are retried with
// exponential backoff; writes run once.
type store struct {
	db      *gorm.DB
	timeout time.Duration
	retries uint64
	metrics *metrics.Metrics
}

func newStore(db *gorm.DB, opts Options) store {
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNop()
	}
	return store{db: db, timeout: timeout, retries: opts.MaxRetries, metrics: m}
}

func (s store) read(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		err := s.run(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnavailable) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, s.retries), ctx))

	s.metrics.RecordStoreOperation(op, time.Since(start), ignoreNotFound(err))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := s.run(ctx, fn)
	s.metrics.RecordStoreOperation(op, time.Since(start), ignoreNotFound(err))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s store) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return classify(fn(s.db.WithContext(callCtx)))
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
