// Command quiz converts the lifeguard question bank into JSON.
//
// Usage:
//
//	go run ./cmd/quiz -download              # fetch the PDF and parse it
//	go run ./cmd/quiz -pdf bank.pdf -mode sentences
//	go run ./cmd/quiz -xlsx bank.xlsx -out quiz
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/file"
	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
	"github.com/couchcryptid/cwa-forecast-etl/internal/quiz"
)

const (
	modeNumbered  = "numbered"
	modeSentences = "sentences"
	modeWorkbook  = "workbook"
)

func main() {
	if err := run(); err != nil {
		slog.Error("quiz failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	download := flag.Bool("download", false, "download the question bank PDF from the portal")
	pdfPath := flag.String("pdf", "", "parse a local PDF")
	xlsxPath := flag.String("xlsx", "", "parse a local Excel workbook")
	outDir := flag.String("out", "", "output directory (default OUTPUT_DIR)")
	mode := flag.String("mode", modeNumbered, "PDF parser: numbered or sentences")
	limit := flag.Int("limit", quiz.DefaultWorkbookLimit, "maximum workbook questions")
	flag.Parse()

	sources := 0
	for _, set := range []bool{*download, *pdfPath != "", *xlsxPath != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		flag.Usage()
		return fmt.Errorf("exactly one of -download, -pdf, -xlsx is required")
	}
	if *mode != modeNumbered && *mode != modeSentences {
		return fmt.Errorf("invalid -mode %q: want %s or %s", *mode, modeNumbered, modeSentences)
	}

	cfg, err := config.LoadBase()
	if err != nil {
		return err
	}
	if *outDir == "" {
		*outDir = cfg.OutputDir
	}
	logger := observability.NewLogger(cfg)
	year := quiz.RocYear(time.Now())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *xlsxPath != "" {
		return convertWorkbook(*xlsxPath, *outDir, year, *limit, logger)
	}

	var data []byte
	if *download {
		d := quiz.NewDownloader(quiz.DefaultDownloadURL, cfg.HTTPTimeout, cfg.FetchMaxRetries, observability.NewMetrics(), logger)
		data, err = d.Download(ctx, quiz.LifeguardBank)
		if err != nil {
			return err
		}
		pdfOut := filepath.Join(*outDir, fmt.Sprintf("quiz_%d.pdf", year))
		if err := file.WriteAtomic(pdfOut, data); err != nil {
			return err
		}
		logger.Info("question bank downloaded", "path", pdfOut, "bytes", len(data))
	} else {
		data, err = os.ReadFile(*pdfPath)
		if err != nil {
			return fmt.Errorf("read pdf: %w", err)
		}
	}

	return convertPDF(data, *outDir, *mode, year, logger)
}

func convertPDF(data []byte, outDir, mode string, year int, logger *slog.Logger) error {
	text, err := quiz.ExtractPDFText(data)
	if err != nil {
		return err
	}

	var (
		doc   any
		count int
		name  string
	)
	switch mode {
	case modeSentences:
		s := quiz.ParseSentences(text)
		doc, count, name = s, len(s), outputName(modeSentences, year)
	default:
		q := quiz.ParseNumbered(text)
		doc, count, name = q, len(q), outputName(modeNumbered, year)
	}
	if count == 0 {
		return fmt.Errorf("no questions found in pdf text (%d chars); try -mode %s", len(text), modeSentences)
	}
	return writeDocument(filepath.Join(outDir, name), doc, count, logger)
}

func convertWorkbook(path, outDir string, year, limit int, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	questions, err := quiz.ParseWorkbook(bytes.NewReader(data), limit)
	if err != nil {
		return err
	}
	return writeDocument(filepath.Join(outDir, outputName(modeWorkbook, year)), questions, len(questions), logger)
}

// outputName returns the JSON file a mode writes for the given ROC year. Each
// mode writes its own file; the numbered PDF parse is the question bank served
// to the quiz app.
func outputName(mode string, year int) string {
	switch mode {
	case modeSentences:
		return fmt.Sprintf("quiz_%d_sentences.json", year)
	case modeWorkbook:
		return fmt.Sprintf("quiz_%d_parsed.json", year)
	default:
		return fmt.Sprintf("quiz_lifeguard_%d.json", year)
	}
}

func writeDocument(path string, v any, count int, logger *slog.Logger) error {
	data, err := domain.MarshalDocument(v)
	if err != nil {
		return err
	}
	if err := file.WriteAtomic(path, data); err != nil {
		return err
	}
	logger.Info("questions written", "path", path, "count", count)
	return nil
}
