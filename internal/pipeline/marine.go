package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

// MarineJob scrapes marine conditions and writes the snapshot.
type MarineJob struct {
	source  MarineSource
	sinks   []Sink
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewMarineJob(source MarineSource, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *MarineJob {
	return &MarineJob{source: source, sinks: sinks, logger: logger, metrics: metrics}
}

func (j *MarineJob) Name() string { return domain.KindMarine }

func (j *MarineJob) Run(ctx context.Context) error {
	snap, err := j.source.Scrape(ctx)
	if err != nil {
		return err
	}
	snap = domain.StampMarine(snap)
	j.logger.Info("marine conditions scraped", "site", snap.Site, "risk_level", snap.RiskLevel)

	ev, err := domain.NewOutputEvent(domain.KindMarine, snap)
	if err != nil {
		return err
	}
	return deliver(ctx, ev, j.sinks, j.metrics)
}
