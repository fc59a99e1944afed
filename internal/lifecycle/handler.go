package lifecycle

import (
	"context"
	"log/slog"
)

// Host is the handle passed to ready handlers.
type Host interface {
	DataDir() string
	Logger() *slog.Logger
}

// ReadyHandler describes work to perform once the host is ready.
type ReadyHandler interface {
	Name() string
	OnReady(ctx context.Context, host Host) error
}

// Status summarizes the outcome of one handler.
type Status struct {
	Name   string
	Ready  bool
	Detail string
}

// Ready constructs a successful Status record.
func Ready(name string) Status {
	return Status{Name: name, Ready: true}
}

// Failed constructs a failed Status record with context detail.
func Failed(name, detail string) Status {
	return Status{Name: name, Ready: false, Detail: detail}
}
