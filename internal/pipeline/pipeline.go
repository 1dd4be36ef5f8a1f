package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

// ForecastSource fetches the raw forecast payload.
type ForecastSource interface {
	Fetch(ctx context.Context) (domain.SourcedPayload, error)
}

// MarineSource scrapes the current marine conditions.
type MarineSource interface {
	Scrape(ctx context.Context) (domain.MarineSnapshot, error)
}

// Sink delivers a serialized document.
type Sink interface {
	Name() string
	Save(ctx context.Context, ev domain.OutputEvent) error
}

// Job is one fetch-transform-write unit run on every pass.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes its jobs sequentially, one pass at a time.
type Runner struct {
	jobs    []Job
	logger  *slog.Logger
	metrics *observability.Metrics
	mu      sync.Mutex
	ready   atomic.Bool
}

// NewRunner creates a Runner for the given jobs.
func NewRunner(jobs []Job, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{jobs: jobs, logger: logger, metrics: metrics}
}

// CheckReadiness returns nil once a pass has completed with every job
// succeeding.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no successful run yet")
	}
	return nil
}

// RunOnce runs every job. A failing job does not stop the others; all
// failures are returned joined.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, job := range r.jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := r.runJob(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s job: %w", job.Name(), err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.ready.Store(true)
	return nil
}

func (r *Runner) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	start := time.Now()

	err := job.Run(ctx)
	r.metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		r.metrics.JobRuns.WithLabelValues(name, "error").Inc()
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			r.logger.Error("job failed: upstream schema changed", "job", name, "path", schemaErr.Path, "error", err)
		} else {
			r.logger.Error("job failed", "job", name, "error", err)
		}
		return err
	}

	r.metrics.JobRuns.WithLabelValues(name, "success").Inc()
	r.metrics.LastSuccess.WithLabelValues(name).SetToCurrentTime()
	r.logger.Info("job completed", "job", name, "duration", time.Since(start))
	return nil
}

// deliver saves ev to every sink, attempting all of them even when one fails.
func deliver(ctx context.Context, ev domain.OutputEvent, sinks []Sink, metrics *observability.Metrics) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Save(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
			continue
		}
		metrics.DocumentsSaved.WithLabelValues(s.Name(), ev.Kind).Inc()
	}
	return errors.Join(errs...)
}
