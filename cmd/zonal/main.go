// Command zonal runs one batch export: it reads raw gridMET frames from the
// raster store, derives (or standardizes) the requested variables, aggregates
// them over county polygons, and writes a flat CSV per run.
//
// Usage:
//
//	go run ./cmd/zonal -jurisdiction 48 -start 2021-01-01 -end 2021-02-01
//	go run ./cmd/zonal -jurisdiction conus -start 2021-06-01 -end 2021-07-01 -anomaly
//
// Store and region paths come from the environment; see internal/config.
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/csvout"
	httpadapter "github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/kafka"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/rasterstore"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/regions"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/config"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/observability"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	jurisdiction := flag.String("jurisdiction", "", "2-digit state FIPS code or \"conus\"")
	startArg := flag.String("start", "", "first date of the range, YYYY-MM-DD (inclusive)")
	endArg := flag.String("end", "", "end of the range, YYYY-MM-DD (exclusive)")
	variables := flag.String("variables", "", "comma-separated output columns; empty selects the mode default")
	anomaly := flag.Bool("anomaly", false, "export standardized anomalies instead of derived values")
	legacyLogPr := flag.Bool("legacy-logpr", false, "include the legacy log-precipitation column")
	flag.Parse()

	if *jurisdiction == "" || *startArg == "" || *endArg == "" {
		flag.Usage()
		return errors.New("missing required flags: -jurisdiction, -start, -end")
	}
	start, err := time.Parse(time.DateOnly, *startArg)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, *endArg)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := rasterstore.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open raster store: %w", err)
	}
	defer store.Close()

	regs, err := regions.Load(cfg.RegionsPath)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	logger.Info("regions loaded", "path", cfg.RegionsPath, "count", len(regs))

	p := pipeline.New(store, regs, logger, metrics, cfg.Workers, cfg.StoreRetryMax)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics endpoint is optional for a batch run; enable it for long CONUS
	// exports that operators want to watch.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	result, err := p.Run(ctx, pipeline.RunConfig{
		Jurisdiction: *jurisdiction,
		Start:        start,
		End:          end,
		Variables:    splitVariables(*variables),
		Anomaly:      *anomaly,
		LegacyLogPr:  *legacyLogPr,
	})
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	outPath := filepath.Join(cfg.OutputDir,
		csvout.Filename(cfg.OutputPrefix, result.Jurisdiction, result.Start, result.End))
	if err := writeCSV(outPath, result); err != nil {
		return err
	}
	logger.Info("export written", "path", outPath, "rows", len(result.Rows))

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer writer.Close()
		if err := writer.PublishSummaries(ctx, result.Jurisdiction, result.Columns, result.Rows); err != nil {
			return fmt.Errorf("publish summaries: %w", err)
		}
		logger.Info("summaries published", "topic", cfg.KafkaSummaryTopic, "rows", len(result.Rows))
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	return nil
}

func writeCSV(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := csvout.Write(f, result.Columns, nil, result.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

func splitVariables(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
