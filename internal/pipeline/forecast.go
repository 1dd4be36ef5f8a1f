package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

// ErrNoCities is returned when every city was skipped. The previous document
// is kept rather than replaced with an empty one.
var ErrNoCities = errors.New("no city could be normalized")

// ForecastJob fetches the forecast, normalizes it and writes the document.
type ForecastJob struct {
	source  ForecastSource
	set     domain.ElementSet
	sinks   []Sink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewForecastJob creates a ForecastJob reading elements named by set.
func NewForecastJob(source ForecastSource, set domain.ElementSet, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *ForecastJob {
	return &ForecastJob{
		source:  source,
		set:     set,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
	}
}

func (j *ForecastJob) Name() string { return domain.KindForecast }

func (j *ForecastJob) Run(ctx context.Context) error {
	payload, err := j.source.Fetch(ctx)
	if err != nil {
		return err
	}

	res, err := domain.Normalize(payload.Raw, j.set, j.logger)
	if err != nil {
		return fmt.Errorf("normalize forecast: %w", err)
	}

	j.metrics.CitiesSkipped.Add(float64(len(res.Warnings)))
	if len(res.Cities) == 0 {
		return fmt.Errorf("%w: %d skipped", ErrNoCities, len(res.Warnings))
	}
	j.metrics.CitiesWritten.Set(float64(len(res.Cities)))

	j.logger.Info("forecast normalized",
		"cities", len(res.Cities),
		"skipped", len(res.Warnings),
		"element_set", j.set.Name,
		"variant", res.Variant,
	)

	ev, err := domain.NewOutputEvent(domain.KindForecast, domain.NewForecastOutput(res, payload.SourceURL))
	if err != nil {
		return err
	}
	return deliver(ctx, ev, j.sinks, j.metrics)
}
