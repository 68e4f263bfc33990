package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	boom := errors.New("connection refused")

	for i := 0; i < 5; i++ {
		err := r.run(ctx, "test", func(context.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("call %d: expected the query error, got %v", i, err)
		}
	}

	called := false
	err := r.run(ctx, "test", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable once open, got %v", err)
	}
	if called {
		t.Error("open breaker must not run the query")
	}
}

func TestCanceledCallsDoNotTrip(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = r.run(ctx, "test", func(context.Context) error { return context.Canceled })
	}
	if err := r.run(ctx, "test", func(context.Context) error { return nil }); err != nil {
		t.Errorf("breaker should stay closed, got %v", err)
	}
}
