// Package analytics runs the fire-and-forget access-recording
// pipeline. The redirect handler submits an event and returns
// immediately; a small worker pool performs geo lookup, user-agent
// classification and the durable history write on its own schedule,
// decoupled from request lifetimes.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/config"
	"shorturl-backend/internal/domain"
)

// Recorder is the enrichment sink; implemented by service.HistoryService.
type Recorder interface {
	RecordAccess(ctx context.Context, event *domain.AccessEvent) error
}

// recordTimeout bounds each write attempt so a stuck backend cannot
// pin a worker forever.
const recordTimeout = 30 * time.Second

// Processor owns the buffered event queue and its workers. Submitted
// events outlive the HTTP requests that produced them: the queue is
// drained by the workers, not by request contexts.
type Processor struct {
	cfg      config.Analytics
	recorder Recorder
	log      *zap.Logger
	queue    chan *domain.AccessEvent
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewProcessor creates an analytics processor.
func NewProcessor(recorder Recorder, cfg config.Analytics, log *zap.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		cfg:      cfg,
		recorder: recorder,
		log:      log,
		queue:    make(chan *domain.AccessEvent, cfg.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("buffer_size", p.cfg.BufferSize),
		zap.Int("retry_attempts", p.cfg.RetryAttempts),
	)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop shuts the processor down, waiting up to the configured timeout
// for in-flight events to drain.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	p.log.Info("stopping analytics processor")

	// Close the queue first so workers drain what is already buffered;
	// the context is cancelled only after the drain (or its timeout) to
	// cut short retry delays.
	close(p.queue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("analytics processor stopped gracefully")
	case <-time.After(p.cfg.ShutdownTimeout):
		p.cancel()
		p.started = false
		p.log.Warn("analytics processor shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	p.started = false
	return nil
}

// Submit enqueues an access event without blocking. When the queue is
// full the event is dropped with an error log; redirect latency must
// never depend on enrichment backpressure.
func (p *Processor) Submit(event *domain.AccessEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	select {
	case p.queue <- event:
		p.log.Debug("access event submitted", zap.String("code", event.Code))
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("processor is shutting down")
	default:
		p.log.Error("analytics queue is full, dropping access event",
			zap.String("code", event.Code),
			zap.Int("queue_size", len(p.queue)),
		)
		return fmt.Errorf("analytics queue is full")
	}
}

// Stats reports queue and worker state for the health endpoint.
func (p *Processor) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"started":        p.started,
		"queue_length":   len(p.queue),
		"queue_capacity": cap(p.queue),
		"worker_count":   p.cfg.Workers,
		"retry_attempts": p.cfg.RetryAttempts,
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Info("analytics worker started")

	for event := range p.queue {
		p.recordWithRetry(log, event)
	}
	log.Info("analytics worker stopped")
}

// recordWithRetry writes one event with exponential backoff. A fully
// failed event is logged and discarded; nothing ever propagates back
// to the redirect that spawned it.
func (p *Processor) recordWithRetry(log *zap.Logger, event *domain.AccessEvent) {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, recordTimeout)
		err := p.recorder.RecordAccess(ctx, event)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("access recording succeeded after retry",
					zap.String("code", event.Code),
					zap.Int("attempt", attempt),
				)
			}
			return
		}

		lastErr = err
		log.Warn("access recording failed",
			zap.String("code", event.Code),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.RetryAttempts),
			zap.Error(err),
		)

		if attempt == p.cfg.RetryAttempts {
			break
		}

		delay := p.cfg.RetryDelay * time.Duration(1<<(attempt-1))

		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
			log.Info("worker shutdown during retry delay")
			return
		}
	}

	log.Error("access recording failed after all retries",
		zap.String("code", event.Code),
		zap.Int("attempts", p.cfg.RetryAttempts),
		zap.Error(lastErr),
	)
}
