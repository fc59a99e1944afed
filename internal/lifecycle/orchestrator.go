package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"launcher/internal/logging"
)

// ErrAlreadyRan is returned by a second call to Run.
var ErrAlreadyRan = errors.New("lifecycle already ran")

// Orchestrator holds an ordered list of ready handlers.
type Orchestrator struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers []ReadyHandler
	statuses []Status
	ran      bool
}

// New creates an empty orchestrator.
func New(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{logger: logging.NewComponentLogger(logger, "lifecycle")}
}

// Register appends handlers in the order they should run. Handlers registered
// after Run are ignored by that run.
func (o *Orchestrator) Register(handlers ...ReadyHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			o.handlers = append(o.handlers, h)
		}
	}
}

// Handlers returns the registered handler names in run order.
func (o *Orchestrator) Handlers() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.handlers))
	for _, h := range o.handlers {
		names = append(names, h.Name())
	}
	return names
}

// Statuses returns the outcome of each handler that Run reached.
func (o *Orchestrator) Statuses() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Status, len(o.statuses))
	copy(out, o.statuses)
	return out
}

// Run invokes each handler once, in registration order. The first failure
// stops the run and is returned wrapped with the handler name. Context
// cancellation is checked before every handler.
func (o *Orchestrator) Run(ctx context.Context, host Host) error {
	o.mu.Lock()
	if o.ran {
		o.mu.Unlock()
		return ErrAlreadyRan
	}
	o.ran = true
	handlers := append([]ReadyHandler(nil), o.handlers...)
	o.mu.Unlock()

	started := time.Now()
	for _, h := range handlers {
		name := h.Name()
		if err := ctx.Err(); err != nil {
			o.record(Failed(name, "not started: "+err.Error()))
			return fmt.Errorf("ready %s: %w", name, err)
		}

		handlerStart := time.Now()
		if err := h.OnReady(ctx, host); err != nil {
			o.record(Failed(name, err.Error()))
			logging.ErrorWithContext(o.logger, "ready handler failed", "ready_handler_failed",
				logging.String("handler", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the state file named in the error"))
			return fmt.Errorf("ready %s: %w", name, err)
		}
		o.record(Ready(name))
		o.logger.Debug("ready handler completed",
			logging.String("handler", name),
			logging.Duration("elapsed", time.Since(handlerStart)))
	}

	o.logger.Info("host ready",
		logging.Int("handlers", len(handlers)),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func (o *Orchestrator) record(s Status) {
	o.mu.Lock()
	o.statuses = append(o.statuses, s)
	o.mu.Unlock()
}
