package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/observability"
)

// FrameSource is the raster variable store boundary: a time-indexed store of
// daily multi-band frames, queryable by date range and band list.
type FrameSource interface {
	// Query returns the frames with Start <= date < End, ordered by date.
	// Days absent from the store are simply omitted.
	Query(ctx context.Context, start, end time.Time, bands []string) ([]domain.Frame, error)

	// HistoryBounds returns the [start, end) range covering every stored
	// frame, used for the climatology pass.
	HistoryBounds(ctx context.Context) (start, end time.Time, err error)
}

// RunConfig fully specifies one batch invocation. The pipeline holds no
// mutable run state of its own; callers pass a fresh config per run.
type RunConfig struct {
	Jurisdiction string
	Start        time.Time // inclusive
	End          time.Time // exclusive
	Variables    []string  // output columns; empty selects the mode default
	Anomaly      bool
	LegacyLogPr  bool
}

// Default variable sets per output mode.
var (
	defaultDerivedVariables = []string{
		domain.BandTminC, domain.BandTmeanC, domain.BandTmaxC,
		domain.BandPr, domain.BandRMean, domain.BandVPD, domain.BandVS,
	}
	defaultAnomalyVariables = []string{"tm_anom", "rhm_anom", "vpd_anom"}
)

func (c RunConfig) variables() []string {
	if len(c.Variables) > 0 {
		return c.Variables
	}
	if !c.Anomaly {
		return defaultDerivedVariables
	}
	vars := defaultAnomalyVariables
	if c.LegacyLogPr {
		vars = append(append([]string{}, vars...), "logpr_anom")
	}
	return vars
}

var rawBands = []string{
	domain.BandPr, domain.BandRMax, domain.BandRMin,
	domain.BandTminK, domain.BandTmaxK, domain.BandVPD, domain.BandVS,
}

// Result is the output of one batch run.
type Result struct {
	Rows         []domain.RegionDaySummary
	Columns      []string
	Jurisdiction string
	Start, End   time.Time
}

// Pipeline executes the derive → climatology → normalize → aggregate → table
// stages as a linear one-shot batch per Run call. Stages fan out per frame;
// the climatology reduction is the single barrier between derive and
// normalize.
type Pipeline struct {
	source   FrameSource
	regions  []domain.Region
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
	retryMax int
	started  atomic.Bool
}

// New creates a Pipeline over a frame source and the full region reference
// set. workers <= 0 selects one worker per CPU; retryMax <= 0 selects a
// budget of 5 store attempts.
func New(source FrameSource, regions []domain.Region, logger *slog.Logger, metrics *observability.Metrics, workers, retryMax int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if retryMax <= 0 {
		retryMax = 5
	}
	return &Pipeline{
		source:   source,
		regions:  regions,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
		retryMax: retryMax,
	}
}

// CheckReadiness returns nil once a run has started processing frames.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.started.Load() {
		return errors.New("no batch run has started yet")
	}
	return nil
}

// Run executes one batch invocation and returns the summary table.
// Per-frame errors (missing band, missing baseline) skip the frame and the
// run continues; jurisdiction and store errors abort the run.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if !cfg.Start.Before(cfg.End) {
		return nil, fmt.Errorf("invalid date range: start %s is not before end %s",
			cfg.Start.Format(time.DateOnly), cfg.End.Format(time.DateOnly))
	}

	regions, err := domain.FilterJurisdiction(p.regions, cfg.Jurisdiction)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer func() { p.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	p.logger.Info("batch run started",
		"jurisdiction", cfg.Jurisdiction,
		"start", cfg.Start.Format(time.DateOnly),
		"end", cfg.End.Format(time.DateOnly),
		"regions", len(regions),
		"anomaly", cfg.Anomaly,
		"workers", p.workers,
	)
	p.started.Store(true)

	raw, err := p.queryWithRetry(ctx, cfg.Start, cfg.End, rawBands)
	if err != nil {
		return nil, err
	}
	p.logger.Info("frames fetched", "count", len(raw))

	opts := domain.DeriveOptions{LegacyLogPrecip: cfg.LegacyLogPr}
	frames, err := p.deriveAll(ctx, raw, opts)
	if err != nil {
		return nil, err
	}

	if cfg.Anomaly {
		clim, err := p.buildClimatology(ctx, opts)
		if err != nil {
			return nil, err
		}
		frames, err = p.normalizeAll(ctx, frames, clim)
		if err != nil {
			return nil, err
		}
	}

	columns := cfg.variables()
	aggs, err := p.aggregateAll(ctx, frames, regions, columns)
	if err != nil {
		return nil, err
	}

	rows := domain.BuildSummaryTable(aggs)
	p.metrics.RowsEmitted.Add(float64(len(rows)))
	p.logger.Info("batch run complete", "rows", len(rows), "frames", len(aggs))

	return &Result{
		Rows:         rows,
		Columns:      columns,
		Jurisdiction: cfg.Jurisdiction,
		Start:        cfg.Start,
		End:          cfg.End,
	}, nil
}

// queryWithRetry fetches frames, retrying transient store failures with
// exponential backoff: start at 200ms, double each retry, cap at 5s.
// Non-transient errors and an exhausted budget are fatal for the run.
func (p *Pipeline) queryWithRetry(ctx context.Context, start, end time.Time, bands []string) ([]domain.Frame, error) {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= p.retryMax; attempt++ {
		frames, err := p.source.Query(ctx, start, end, bands)
		if err == nil {
			return frames, nil
		}

		var transient *domain.TransientStoreError
		if !errors.As(err, &transient) {
			return nil, fmt.Errorf("query raster store: %w", err)
		}
		lastErr = err

		p.metrics.StoreRetries.Inc()
		p.logger.Warn("raster store query failed, retrying",
			"error", err,
			"attempt", attempt,
			"start", start.Format(time.DateOnly),
			"end", end.Format(time.DateOnly),
		)

		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("raster store query failed after %d attempts: %w", p.retryMax, lastErr)
}

// deriveAll runs the variable derivation in parallel per frame. Frames with
// missing bands are logged, counted, and dropped; order is preserved.
func (p *Pipeline) deriveAll(ctx context.Context, raw []domain.Frame, opts domain.DeriveOptions) ([]domain.Frame, error) {
	stageStart := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("derive").Observe(time.Since(stageStart).Seconds())
	}()

	derived := make([]domain.Frame, len(raw))
	ok := make([]bool, len(raw))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, frame := range raw {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := domain.DeriveVariables(frame, opts)
			if err != nil {
				var missing *domain.MissingBandError
				if errors.As(err, &missing) {
					p.logger.Warn("frame skipped: missing band",
						"band", missing.Band,
						"date", frame.Date.Format(time.DateOnly),
					)
					p.metrics.FramesSkipped.WithLabelValues("missing_band").Inc()
					return nil
				}
				return err
			}
			derived[i] = out
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(derived, ok), nil
}

// buildClimatology reduces the complete historical series into the
// per-day-of-year baseline. The reduction shards frames across workers,
// one accumulator set per shard, merged at the end.
func (p *Pipeline) buildClimatology(ctx context.Context, opts domain.DeriveOptions) (*domain.Climatology, error) {
	buildStart := time.Now()

	histStart, histEnd, err := p.source.HistoryBounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("history bounds: %w", err)
	}

	raw, err := p.queryWithRetry(ctx, histStart, histEnd, rawBands)
	if err != nil {
		return nil, err
	}

	history, err := p.deriveAll(ctx, raw, opts)
	if err != nil {
		return nil, err
	}

	shards := make([]*domain.ClimatologyBuilder, p.workers)
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < p.workers; s++ {
		shards[s] = domain.NewClimatologyBuilder()
		g.Go(func() error {
			for i := s; i < len(history); i += p.workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				shards[s].Add(history[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := shards[0]
	for _, shard := range shards[1:] {
		merged.Merge(shard)
	}
	clim := merged.Build()

	p.metrics.ClimatologyBuildDuration.Observe(time.Since(buildStart).Seconds())
	p.logger.Info("climatology built",
		"history_frames", len(history),
		"days", clim.Days(),
		"duration", time.Since(buildStart),
	)
	return clim, nil
}

// normalizeAll converts derived frames to anomaly frames in parallel.
// Frames without a baseline entry are logged, counted, and dropped.
func (p *Pipeline) normalizeAll(ctx context.Context, frames []domain.Frame, clim *domain.Climatology) ([]domain.Frame, error) {
	stageStart := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("normalize").Observe(time.Since(stageStart).Seconds())
	}()

	anomalies := make([]domain.Frame, len(frames))
	ok := make([]bool, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, frame := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := domain.Normalize(frame, clim)
			if err != nil {
				var missing *domain.BaselineMissingError
				if errors.As(err, &missing) {
					p.logger.Warn("frame excluded from anomaly output: no baseline",
						"day_of_year", missing.DayOfYear,
						"date", frame.Date.Format(time.DateOnly),
					)
					p.metrics.FramesSkipped.WithLabelValues("missing_baseline").Inc()
					return nil
				}
				return err
			}
			anomalies[i] = out
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(anomalies, ok), nil
}

// aggregateAll reduces each frame to per-region values in parallel. A frame
// either contributes a complete aggregate or, on cancellation, nothing.
func (p *Pipeline) aggregateAll(ctx context.Context, frames []domain.Frame, regions []domain.Region, bands []string) ([]domain.FrameAggregate, error) {
	stageStart := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("aggregate").Observe(time.Since(stageStart).Seconds())
	}()

	aggs := make([]domain.FrameAggregate, len(frames))
	ok := make([]bool, len(frames))
	var mu sync.Mutex
	empty := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, frame := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			values, err := domain.AggregateRegions(frame, regions, bands, p.logger)
			if err != nil {
				return fmt.Errorf("aggregate frame %s: %w", frame.Date.Format(time.DateOnly), err)
			}
			aggs[i] = domain.FrameAggregate{Date: frame.Date, Regions: values}
			ok[i] = true

			n := countEmpty(values, bands)
			if n > 0 {
				mu.Lock()
				empty += n
				mu.Unlock()
			}
			p.metrics.FramesProcessed.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if empty > 0 {
		p.metrics.EmptyRegions.Add(float64(empty))
	}
	return compact(aggs, ok), nil
}

func countEmpty(values []domain.RegionValues, bands []string) int {
	n := 0
	for _, rv := range values {
		missing := true
		for _, band := range bands {
			v, ok := rv.Values[band]
			if ok && v == v { // v == v is false only for NaN
				missing = false
				break
			}
		}
		if missing {
			n++
		}
	}
	return n
}

// compact drops the slots whose ok flag is false, preserving order.
func compact[T any](items []T, ok []bool) []T {
	out := items[:0]
	for i, item := range items {
		if ok[i] {
			out = append(out, item)
		}
	}
	return out
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
