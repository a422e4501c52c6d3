package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// climFrames builds one frame per year at the given day-of-year, with the
// tmeanc band set to the corresponding constant.
func climFrames(doy int, startYear int, values []float64) []Frame {
	frames := make([]Frame, 0, len(values))
	for i, v := range values {
		frames = append(frames, Frame{
			Date:   dayOfYearDate(startYear+i, doy),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, v)},
		})
	}
	return frames
}

func TestClimatologyBuilder(t *testing.T) {
	t.Run("five-year baseline for day 200", func(t *testing.T) {
		// 2001–2005 tmeanc values per the reference scenario.
		b := NewClimatologyBuilder()
		for _, f := range climFrames(200, 2001, []float64{10, 12, 11, 13, 14}) {
			b.Add(f)
		}
		clim := b.Build()

		entry, ok := clim.Entry(200)
		require.True(t, ok)
		assert.InDelta(t, 12.0, entry.Mean[BandTmeanC].At(0, 0), floatTolerance)
		assert.InDelta(t, 1.5811, entry.Stddev[BandTmeanC].At(0, 0), 1e-4)
	})

	t.Run("stddev is non-negative", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(45, 2010, []float64{3.5, 3.5, 3.5}) {
			b.Add(f)
		}
		entry, ok := b.Build().Entry(45)
		require.True(t, ok)
		assert.GreaterOrEqual(t, entry.Stddev[BandTmeanC].At(2, 2), 0.0)
		assert.InDelta(t, 0.0, entry.Stddev[BandTmeanC].At(2, 2), floatTolerance)
	})

	t.Run("single contributing year yields NaN stddev", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(10, 2001, []float64{7}) {
			b.Add(f)
		}
		entry, ok := b.Build().Entry(10)
		require.True(t, ok)
		assert.InDelta(t, 7.0, entry.Mean[BandTmeanC].At(0, 0), floatTolerance)
		assert.True(t, math.IsNaN(entry.Stddev[BandTmeanC].At(0, 0)))
	})

	t.Run("no entry for unseen day-of-year", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(200, 2001, []float64{10, 12}) {
			b.Add(f)
		}
		clim := b.Build()
		_, ok := clim.Entry(201)
		assert.False(t, ok)
		assert.Equal(t, 1, clim.Days())
	})

	t.Run("NaN pixels reduce the per-pixel sample", func(t *testing.T) {
		frames := climFrames(200, 2001, []float64{10, 12, 11})
		frames[0].Bands[BandTmeanC].Set(1, 1, math.NaN())

		b := NewClimatologyBuilder()
		for _, f := range frames {
			b.Add(f)
		}
		entry, _ := b.Build().Entry(200)

		// Pixel (1,1) sees only 12 and 11; the rest see all three years.
		assert.InDelta(t, 11.5, entry.Mean[BandTmeanC].At(1, 1), floatTolerance)
		assert.InDelta(t, 11.0, entry.Mean[BandTmeanC].At(0, 0), floatTolerance)
	})

	t.Run("leap day accumulates under day 366", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(366, 2020, []float64{1}) {
			b.Add(f)
		}
		_, ok := b.Build().Entry(366)
		assert.True(t, ok)
	})
}

func TestClimatologyBuilder_Merge(t *testing.T) {
	frames := climFrames(200, 2001, []float64{10, 12, 11, 13, 14})

	// One builder per shard, merged, must match a single streaming pass.
	single := NewClimatologyBuilder()
	for _, f := range frames {
		single.Add(f)
	}

	shardA := NewClimatologyBuilder()
	shardB := NewClimatologyBuilder()
	for i, f := range frames {
		if i%2 == 0 {
			shardA.Add(f)
		} else {
			shardB.Add(f)
		}
	}
	shardA.Merge(shardB)

	want, _ := single.Build().Entry(200)
	got, ok := shardA.Build().Entry(200)
	require.True(t, ok)

	assert.InDelta(t, want.Mean[BandTmeanC].At(3, 3), got.Mean[BandTmeanC].At(3, 3), floatTolerance)
	assert.InDelta(t, want.Stddev[BandTmeanC].At(3, 3), got.Stddev[BandTmeanC].At(3, 3), floatTolerance)
}

func TestClimatologyBuilder_MergeDisjointDays(t *testing.T) {
	shardA := NewClimatologyBuilder()
	for _, f := range climFrames(100, 2001, []float64{5, 6}) {
		shardA.Add(f)
	}
	shardB := NewClimatologyBuilder()
	for _, f := range climFrames(101, 2001, []float64{8, 9}) {
		shardB.Add(f)
	}
	shardA.Merge(shardB)
	clim := shardA.Build()

	entry, ok := clim.Entry(101)
	require.True(t, ok)
	assert.InDelta(t, 8.5, entry.Mean[BandTmeanC].At(0, 0), floatTolerance)
	assert.Equal(t, 2, clim.Days())
}
