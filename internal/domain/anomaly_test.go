package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestClimatology produces a baseline for day 200 from the 2001–2005
// reference series (mean 12.0, sample stddev ≈ 1.5811).
func buildTestClimatology(t *testing.T) *Climatology {
	t.Helper()
	b := NewClimatologyBuilder()
	for _, f := range climFrames(200, 2001, []float64{10, 12, 11, 13, 14}) {
		b.Add(f)
	}
	return b.Build()
}

func TestNormalize(t *testing.T) {
	clim := buildTestClimatology(t)

	t.Run("z-score against the baseline", func(t *testing.T) {
		frame := Frame{
			Date:   dayOfYearDate(2006, 200),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, 15)},
		}
		anom, err := Normalize(frame, clim)
		require.NoError(t, err)

		got, ok := anom.Band("tm_anom")
		require.True(t, ok, "tmeanc anomaly must be renamed tm_anom")
		assert.InDelta(t, (15.0-12.0)/1.5811, got.At(0, 0), 1e-3)
		assert.InDelta(t, 1.897, got.At(3, 3), 1e-3)
	})

	t.Run("value at the climatological mean yields zero", func(t *testing.T) {
		frame := Frame{
			Date:   dayOfYearDate(2006, 200),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, 12)},
		}
		anom, err := Normalize(frame, clim)
		require.NoError(t, err)

		got, _ := anom.Band("tm_anom")
		for i := range got.Data {
			assert.InDelta(t, 0.0, got.Data[i], floatTolerance)
		}
	})

	t.Run("zero stddev propagates NaN", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(90, 2001, []float64{4, 4, 4}) {
			b.Add(f)
		}
		flat := b.Build()

		frame := Frame{
			Date:   dayOfYearDate(2006, 90),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, 9)},
		}
		anom, err := Normalize(frame, flat)
		require.NoError(t, err)

		got, _ := anom.Band("tm_anom")
		assert.True(t, math.IsNaN(got.At(0, 0)))
	})

	t.Run("NaN stddev propagates NaN", func(t *testing.T) {
		b := NewClimatologyBuilder()
		for _, f := range climFrames(91, 2001, []float64{4}) {
			b.Add(f)
		}
		sparse := b.Build()

		frame := Frame{
			Date:   dayOfYearDate(2006, 91),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, 9)},
		}
		anom, err := Normalize(frame, sparse)
		require.NoError(t, err)

		got, _ := anom.Band("tm_anom")
		assert.True(t, math.IsNaN(got.At(2, 1)))
	})

	t.Run("missing baseline entry fails the frame", func(t *testing.T) {
		frame := Frame{
			Date:   dayOfYearDate(2006, 201),
			Extent: testExtent,
			Bands:  map[string]Grid{BandTmeanC: constGrid(4, 4, 15)},
		}
		_, err := Normalize(frame, clim)
		require.Error(t, err)

		var missing *BaselineMissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, 201, missing.DayOfYear)
	})

	t.Run("bands absent from the baseline are dropped", func(t *testing.T) {
		frame := Frame{
			Date:   dayOfYearDate(2006, 200),
			Extent: testExtent,
			Bands: map[string]Grid{
				BandTmeanC: constGrid(4, 4, 15),
				BandVS:     constGrid(4, 4, 2),
			},
		}
		anom, err := Normalize(frame, clim)
		require.NoError(t, err)

		_, ok := anom.Band("vs_anom")
		assert.False(t, ok)
		assert.Len(t, anom.Bands, 1)
	})
}

func TestAnomalyBandName(t *testing.T) {
	tests := []struct {
		band string
		want string
	}{
		{BandTmeanC, "tm_anom"},
		{BandRMean, "rhm_anom"},
		{BandVPD, "vpd_anom"},
		{BandLogPr, "logpr_anom"},
		{BandVS, "vs_anom"},
		{BandPr, "pr_anom"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AnomalyBandName(tc.band), tc.band)
	}
}
