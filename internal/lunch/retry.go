package lunch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoollunch/lunchwallet/internal/logging"
)

// Recorder counts gateway attempts by outcome.
type Recorder interface {
	GatewayRequest(method, outcome string)
}

// Retrying wraps a Gateway with bounded attempts and a fixed backoff. 4xx
// answers return at once; any other failure is retried and, once attempts
// run out, reported as ErrServiceUnavailable.
type Retrying struct {
	next     Gateway
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	metrics  Recorder
}

// RetryOption customises a Retrying gateway.
type RetryOption func(*Retrying)

// WithRetryLogger sets the logger used for attempt failures.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *Retrying) { r.logger = logging.Component(logger, "lunch") }
}

// WithRetryMetrics records every attempt.
func WithRetryMetrics(m Recorder) RetryOption {
	return func(r *Retrying) { r.metrics = m }
}

// NewRetrying wraps next. attempts below 1 means a single attempt.
func NewRetrying(next Gateway, attempts int, backoff time.Duration, opts ...RetryOption) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	r := &Retrying{next: next, attempts: attempts, backoff: backoff, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListOrders retries the underlying list call.
func (r *Retrying) ListOrders(ctx context.Context, childID string) ([]Order, error) {
	var orders []Order
	err := r.run(ctx, "list_orders", func(ctx context.Context) error {
		var err error
		orders, err = r.next.ListOrders(ctx, childID)
		return err
	})
	return orders, err
}

// CreateOrder retries the underlying create call.
func (r *Retrying) CreateOrder(ctx context.Context, childID string, req OrderRequest) (Order, error) {
	var order Order
	err := r.run(ctx, "create_order", func(ctx context.Context) error {
		var err error
		order, err = r.next.CreateOrder(ctx, childID, req)
		return err
	})
	return order, err
}

// DeleteOrder retries the underlying delete call.
func (r *Retrying) DeleteOrder(ctx context.Context, childID, orderID string) error {
	return r.run(ctx, "delete_order", func(ctx context.Context) error {
		return r.next.DeleteOrder(ctx, childID, orderID)
	})
}

func (r *Retrying) run(ctx context.Context, method string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err := call(ctx)
		if err == nil {
			r.record(method, "ok")
			return nil
		}
		if errors.Is(err, ErrClientRejected) {
			r.record(method, "rejected")
			return err
		}

		lastErr = err
		r.record(method, "error")
		r.logger.Warn("lunch service call failed",
			slog.String("method", method),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.attempts),
			slog.Any("error", err),
		)
		if attempt == r.attempts {
			break
		}

		timer := time.NewTimer(r.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrServiceUnavailable, ctx.Err())
		case <-timer.C:
		}
	}

	r.record(method, "unavailable")
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrServiceUnavailable, method, r.attempts, lastErr)
}

func (r *Retrying) record(method, outcome string) {
	if r.metrics != nil {
		r.metrics.GatewayRequest(method, outcome)
	}
}
