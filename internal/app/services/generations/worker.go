package generations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/metrics"
	"github.com/studioshot/platform/internal/app/system"
	"github.com/studioshot/platform/internal/provider"
	"github.com/studioshot/platform/pkg/logger"
)

var _ system.Service = (*Worker)(nil)

// Worker periodically claims pending generations and runs them through the
// pipeline. Transient provider failures back off and retry; exhausted or
// permanent failures fail the generation, which refunds the credit.
type Worker struct {
	service     *Service
	pipeline    *Pipeline
	log         *logger.Logger
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	retries map[string]*retryState
}

type retryState struct {
	attempts int
	next     time.Time
}

// NewWorker constructs a lifecycle-managed generation worker.
func NewWorker(service *Service, pipeline *Pipeline, interval time.Duration, maxAttempts int, log *logger.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if log == nil {
		log = logger.NewDefault("generation-worker")
	}
	return &Worker{
		service:     service,
		pipeline:    pipeline,
		log:         log,
		interval:    interval,
		maxAttempts: maxAttempts,
		retries:     make(map[string]*retryState),
	}
}

func (w *Worker) Name() string { return "generation-worker" }

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.pipeline == nil {
		w.mu.Unlock()
		w.log.Warn("generation pipeline not configured; worker disabled")
		return nil
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				w.tick(runCtx)
			}
		}
	}()

	w.log.Info("generation worker started")
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.log.Info("generation worker stopped")
	return nil
}

func (w *Worker) tick(ctx context.Context) {
	pending, err := w.service.store.ListPendingGenerations(ctx)
	if err != nil {
		w.log.WithError(err).Warn("generation worker tick failed")
		return
	}

	now := time.Now()
	for _, g := range pending {
		if !w.shouldAttempt(g.ID, now) {
			continue
		}
		claimed, err := w.service.MarkProcessing(ctx, g.ID)
		if err != nil {
			if !errors.Is(err, ErrInvalidTransition) {
				w.log.WithError(err).WithField("generation_id", g.ID).Warn("claim failed")
			}
			continue
		}
		w.process(ctx, claimed)
	}

	// Records claimed on an earlier tick whose provider call backed off.
	processing, err := w.service.store.ListProcessingGenerations(ctx)
	if err != nil {
		w.log.WithError(err).Warn("generation worker retry scan failed")
		return
	}
	for _, g := range processing {
		w.mu.Lock()
		state, tracked := w.retries[g.ID]
		w.mu.Unlock()
		if !tracked || now.Before(state.next) {
			continue
		}
		w.process(ctx, g)
	}
}

func (w *Worker) process(ctx context.Context, g generation.Generation) {
	start := time.Now()
	err := w.pipeline.Run(ctx, g)
	if err == nil {
		w.clear(g.ID)
		metrics.RecordGenerationRun("completed", time.Since(start))
		return
	}

	attempts := w.bump(g.ID)
	var transient *provider.TransientError
	if errors.As(err, &transient) && attempts < w.maxAttempts {
		metrics.RecordGenerationRun("retried", time.Since(start))
		w.scheduleNext(g.ID, transient.RetryAfter)
		w.log.WithError(err).
			WithField("generation_id", g.ID).
			WithField("attempt", attempts).
			Warn("generation attempt failed; will retry")
		return
	}

	w.clear(g.ID)
	metrics.RecordGenerationRun("failed", time.Since(start))
	cause := err.Error()
	if attempts >= w.maxAttempts {
		cause = fmt.Sprintf("gave up after %d attempts: %v", attempts, err)
	}
	if _, failErr := w.service.Fail(ctx, g.ID, cause); failErr != nil {
		w.log.WithError(failErr).WithField("generation_id", g.ID).Error("failed to mark generation failed")
	}
}

func (w *Worker) shouldAttempt(id string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ok := w.retries[id]
	if !ok {
		return true
	}
	return !now.Before(state.next)
}

func (w *Worker) bump(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ok := w.retries[id]
	if !ok {
		state = &retryState{}
		w.retries[id] = state
	}
	state.attempts++
	return state.attempts
}

func (w *Worker) scheduleNext(id string, after time.Duration) {
	if after <= 0 {
		after = w.interval
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if state, ok := w.retries[id]; ok {
		state.next = time.Now().Add(after)
	}
}

func (w *Worker) clear(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.retries, id)
}
