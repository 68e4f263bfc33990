// Package repository reads the prepped ratings table from PostgreSQL.
//
// Every query is parameter bound and borrows a pooled connection only for the
// duration of the call. Calls go through a circuit breaker so a failing
// database is reported as domain.ErrStoreUnavailable instead of piling up
// timeouts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
)

const breakerName = "postgres"

type Repository struct {
	pool *pgxpool.Pool
	cb   *gobreaker.CircuitBreaker[any]
}

// New wraps pool. The breaker opens after 5 consecutive failures and lets a
// trial call through after 30 seconds.
func New(pool *pgxpool.Pool) *Repository {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A caller giving up is not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, pgx.ErrNoRows)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).Msg("[repository] circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &Repository{pool: pool, cb: cb}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// run executes fn through the breaker and records query metrics under op.
func (r *Repository) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	_, err := r.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	metrics.ObserveQuery(op, start, err)

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	return err
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.run(ctx, "ping", func(ctx context.Context) error {
		return r.pool.Ping(ctx)
	})
}
