package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/apresai/storybook/internal/observability"
	"github.com/apresai/storybook/internal/pipeline"
)

// ErrBusy is returned when a storybook is already being generated.
var ErrBusy = errors.New("a storybook is already being generated, try again shortly")

type runFunc func(ctx context.Context, deps pipeline.Deps, opts pipeline.Options) (*pipeline.Result, error)

// Runner executes one pipeline run at a time.
type Runner struct {
	deps    pipeline.Deps
	run     runFunc
	log     *slog.Logger
	baseCtx context.Context // cancelled on SIGTERM

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner. baseCtx should be cancelled on SIGTERM.
func NewRunner(baseCtx context.Context, deps pipeline.Deps, logger *slog.Logger) *Runner {
	return &Runner{
		deps:    deps,
		run:     pipeline.Run,
		log:     logger,
		baseCtx: baseCtx,
	}
}

// Run generates a storybook and waits for it. The run is not cancelled
// when the caller goes away, so a started book is still delivered.
func (r *Runner) Run(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runCtx := observability.DetachTraceContextFrom(ctx, r.baseCtx)
	res, err := r.run(runCtx, r.deps, opts)
	if err != nil {
		r.log.ErrorContext(ctx, "Storybook generation failed", "error", err)
		return nil, err
	}
	r.log.InfoContext(ctx, "Storybook generated", "run_id", res.RunID, "title", res.Title, "delivered", res.Delivered)
	return res, nil
}
