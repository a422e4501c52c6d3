package domain

import (
	"math"
)

// ClimatologyEntry holds the per-pixel baseline for one day-of-year: mean
// and sample standard deviation grids for every band.
type ClimatologyEntry struct {
	Mean   map[string]Grid
	Stddev map[string]Grid
}

// Climatology is the full per-day-of-year baseline table, built once per run
// from the complete historical series and immutable afterward.
type Climatology struct {
	entries map[int]ClimatologyEntry
}

// Entry returns the baseline for a day-of-year, reporting whether one exists.
func (c *Climatology) Entry(doy int) (ClimatologyEntry, bool) {
	e, ok := c.entries[doy]
	return e, ok
}

// Days returns the number of day-of-year groups with at least one frame.
func (c *Climatology) Days() int { return len(c.entries) }

// bandAccum accumulates per-pixel count, sum, and sum of squares for one
// band of one day-of-year group. NaN pixels are skipped, so the effective
// sample size can vary per pixel.
type bandAccum struct {
	count []float64
	sum   []float64
	sumSq []float64
}

func newBandAccum(n int) *bandAccum {
	return &bandAccum{
		count: make([]float64, n),
		sum:   make([]float64, n),
		sumSq: make([]float64, n),
	}
}

func (a *bandAccum) add(g Grid) {
	for i, v := range g.Data {
		if isMissing(v) {
			continue
		}
		a.count[i]++
		a.sum[i] += v
		a.sumSq[i] += v * v
	}
}

func (a *bandAccum) merge(o *bandAccum) {
	for i := range a.count {
		a.count[i] += o.count[i]
		a.sum[i] += o.sum[i]
		a.sumSq[i] += o.sumSq[i]
	}
}

// ClimatologyBuilder accumulates the historical series in a single streaming
// pass, keyed by (day-of-year, band, pixel). Builders are not safe for
// concurrent use; shard frames across one builder per worker and combine
// with Merge.
type ClimatologyBuilder struct {
	days   map[int]map[string]*bandAccum
	width  int
	height int
}

// NewClimatologyBuilder creates an empty builder.
func NewClimatologyBuilder() *ClimatologyBuilder {
	return &ClimatologyBuilder{days: make(map[int]map[string]*bandAccum)}
}

// Add folds one derived frame into the accumulators.
func (b *ClimatologyBuilder) Add(f Frame) {
	w, h := f.Shape()
	if b.width == 0 {
		b.width, b.height = w, h
	}

	doy := f.DayOfYear()
	bands, ok := b.days[doy]
	if !ok {
		bands = make(map[string]*bandAccum, len(f.Bands))
		b.days[doy] = bands
	}
	for name, g := range f.Bands {
		acc, ok := bands[name]
		if !ok {
			acc = newBandAccum(w * h)
			bands[name] = acc
		}
		acc.add(g)
	}
}

// Merge folds another builder's accumulators into this one. The other
// builder must have seen frames of the same shape.
func (b *ClimatologyBuilder) Merge(o *ClimatologyBuilder) {
	if b.width == 0 {
		b.width, b.height = o.width, o.height
	}
	for doy, oBands := range o.days {
		bands, ok := b.days[doy]
		if !ok {
			b.days[doy] = oBands
			continue
		}
		for name, oAcc := range oBands {
			if acc, ok := bands[name]; ok {
				acc.merge(oAcc)
			} else {
				bands[name] = oAcc
			}
		}
	}
}

// Build finalizes the accumulators into mean and sample-stddev grids.
// Pixels with no observations yield NaN mean; pixels with fewer than two
// contributing years yield NaN stddev so downstream normalization treats
// them as missing instead of dividing by a degenerate baseline.
func (b *ClimatologyBuilder) Build() *Climatology {
	entries := make(map[int]ClimatologyEntry, len(b.days))
	for doy, bands := range b.days {
		entry := ClimatologyEntry{
			Mean:   make(map[string]Grid, len(bands)),
			Stddev: make(map[string]Grid, len(bands)),
		}
		for name, acc := range bands {
			mean := NewGrid(b.width, b.height)
			std := NewGrid(b.width, b.height)
			for i := range acc.count {
				n := acc.count[i]
				if n == 0 {
					mean.Data[i] = math.NaN()
					std.Data[i] = math.NaN()
					continue
				}
				m := acc.sum[i] / n
				mean.Data[i] = m
				if n < 2 {
					std.Data[i] = math.NaN()
					continue
				}
				// Sample variance via the sum-of-squares identity; clamp
				// tiny negative residue from floating-point cancellation.
				variance := (acc.sumSq[i] - acc.sum[i]*m) / (n - 1)
				if variance < 0 {
					variance = 0
				}
				std.Data[i] = math.Sqrt(variance)
			}
			entry.Mean[name] = mean
			entry.Stddev[name] = std
		}
		entries[doy] = entry
	}
	return &Climatology{entries: entries}
}
