package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldops/internal/platform/metrics"
	txcontext "fieldops/pkg/platform/tx"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// ErrCircuitOpen is returned by Flush while the broker is considered down.
var ErrCircuitOpen = errors.New("outbox relay circuit open")

// Relay polls the outbox and publishes pending rows in creation order.
type Relay struct {
	store     Store
	publisher Publisher
	tx        txcontext.Runner
	breaker   *breaker
	batchSize int
	interval  time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBreaker opens the circuit after threshold consecutive publish
// failures and holds it for cooldown.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(r *Relay) {
		r.breaker = newBreaker(threshold, cooldown, func() time.Time { return r.now() })
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

func NewRelay(store Store, publisher Publisher, runner txcontext.Runner, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		tx:        runner,
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = newBreaker(0, 0, func() time.Time { return r.now() })
	}
	return r
}

// Run flushes the outbox every poll interval until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil {
				r.logger.Warn().Err(err).Msg("outbox flush failed")
			}
		}
	}
}

// Flush publishes batches until the outbox is drained and returns how many
// rows were delivered. A failed batch stays pending for the next flush.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		if !r.breaker.allow() {
			r.metrics.SetOutboxBreakerOpen(true)
			return total, ErrCircuitOpen
		}
		n, err := r.flushBatch(ctx)
		total += n
		if err != nil {
			r.metrics.IncOutboxFailure()
			if r.breaker.failure() {
				r.logger.Error().Err(err).Msg("outbox relay circuit opened")
			}
			r.metrics.SetOutboxBreakerOpen(r.breaker.isOpen())
			return total, err
		}
		r.breaker.success()
		r.metrics.SetOutboxBreakerOpen(false)
		if n < r.batchSize {
			return total, nil
		}
	}
}

func (r *Relay) flushBatch(ctx context.Context) (int, error) {
	var published int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		msgs, err := r.store.Claim(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}
		if err := r.publisher.Publish(ctx, msgs); err != nil {
			return fmt.Errorf("publish %d outbox rows: %w", len(msgs), err)
		}
		ids := make([]uuid.UUID, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
			return err
		}
		published = len(msgs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.metrics.AddOutboxPublished(published)
		r.logger.Debug().Int("rows", published).Msg("outbox batch published")
	}
	return published, nil
}
