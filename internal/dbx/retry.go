package dbx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// transientSQLStates are the Postgres SQLSTATE codes treated as
// TransientDbError (spec.md §7): connection loss and deadlocks.
var transientSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// Classify reports whether err represents a transient database failure
// eligible for retry, versus a permanent one (constraint violation,
// syntax error, etc.) that should surface immediately.
func Classify(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLStates[pgErr.Code]
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Retrier wraps the business pool's transaction-executing calls with a
// bounded retry-with-exponential-backoff loop plus a circuit breaker, so
// a database that is persistently down fails fast instead of retrying
// every importer run into the same outage (spec.md §5 "TransientDbError
// ... importer retries the whole transaction up to a bounded count with
// exponential backoff, then surfaces as fatal").
type Retrier struct {
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	baseDelay  time.Duration
}

// NewRetrier builds a Retrier. maxRetries bounds retry attempts per
// call; the breaker opens after 5 consecutive failures and probes again
// after 30s.
func NewRetrier(name string, maxRetries int) *Retrier {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Retrier{
		breaker:    gobreaker.NewCircuitBreaker(st),
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
	}
}

// Do executes fn, retrying on transient errors with exponential backoff
// until maxRetries is exhausted, through the circuit breaker. A
// non-transient error is returned immediately without retry.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		_, err := r.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return errs.NewTransientDbError(operation, err)
		}
		if !Classify(err) {
			return err
		}
		lastErr = err
		if attempt < r.maxRetries {
			select {
			case <-ctx.Done():
				return errs.NewTransientDbError(operation, ctx.Err())
			case <-time.After(r.baseDelay * time.Duration(1<<attempt)):
			}
		}
	}
	return errs.NewTransientDbError(operation, lastErr)
}
