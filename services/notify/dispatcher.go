package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const taskTimeout = 30 * time.Second

// Dispatcher runs fire-and-forget side effects off the request path. Task
// errors are logged and dropped; nothing is retried.
type Dispatcher struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Go starts task in the background with its own deadline, detached from the
// caller's request context.
func (d *Dispatcher) Go(name string, task func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("background task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		if err := task(ctx); err != nil {
			d.logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
			return
		}
		d.logger.Debug("background task done", zap.String("task", name))
	}()
}

// Wait blocks until every dispatched task has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
