package service

import (
	"context"
	"sync"

	"moneylink-backend/internal/logger"
)

// Effects runs best-effort work after a request has committed its state. Tasks
// outlive the request context; failures are logged and never retried.
type Effects struct {
	wg sync.WaitGroup
}

func NewEffects() *Effects {
	return &Effects{}
}

func (e *Effects) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Side effect panicked", "effect", name, "panic", r)
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WarnContext(ctx, "Side effect failed", "effect", name, "error", err)
		}
	}()
}

// Wait blocks until every started task returns or ctx is done.
func (e *Effects) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
