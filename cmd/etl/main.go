package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/cwa"
	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/file"
	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/goocean"
	httpadapter "github.com/couchcryptid/cwa-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cwa-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
	"github.com/couchcryptid/cwa-forecast-etl/internal/pipeline"
)

func main() {
	once := flag.Bool("once", false, "run a single pass and exit")
	dumpMarine := flag.Bool("dump-marine", false, "print the GoOcean map layer data for the current hour and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dumpMarine {
		if err := printMarinePage(ctx, cfg, metrics, logger); err != nil {
			logger.Error("marine page dump failed", "error", err)
			os.Exit(1)
		}
		return
	}

	set, _ := domain.ElementSetByName(cfg.ElementSet) // validated by config.Load

	fileSink := file.NewSink(cfg.OutputDir, map[string]string{
		domain.KindForecast: cfg.ForecastFile,
		domain.KindMarine:   cfg.MarineFile,
	}, logger)
	sinks := []pipeline.Sink{fileSink}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	jobs := []pipeline.Job{
		pipeline.NewForecastJob(cwa.NewClient(cfg, metrics, logger), set, sinks, logger, metrics),
	}
	if cfg.MarineEnabled {
		jobs = append(jobs, pipeline.NewMarineJob(goocean.NewScraper(cfg, metrics, logger), sinks, logger, metrics))
	} else {
		logger.Info("marine scrape disabled")
	}

	runner := pipeline.NewRunner(jobs, logger, metrics)

	if *once {
		err := runner.RunOnce(ctx)
		closeWriter(writer, logger)
		if err != nil {
			var schemaErr *domain.SchemaError
			if errors.As(err, &schemaErr) {
				fmt.Fprintf(os.Stderr, "upstream schema changed: %v\n", schemaErr)
			}
			os.Exit(1)
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, fileSink, file.ErrNoDocument, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled passes.
	scheduler := pipeline.NewScheduler(runner, cfg.ScheduleInterval, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func printMarinePage(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) error {
	scraper := goocean.NewScraper(cfg, metrics, logger)
	data, err := scraper.FetchPageData(ctx, goocean.PageQueryAt(time.Now()))
	if err != nil {
		return err
	}
	out, err := domain.MarshalDocument(data)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
