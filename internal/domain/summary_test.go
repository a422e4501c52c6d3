package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func aggregate(date time.Time, fipsValues map[string]float64) FrameAggregate {
	agg := FrameAggregate{Date: date}
	for fips, v := range fipsValues {
		agg.Regions = append(agg.Regions, RegionValues{
			FIPS:     fips,
			District: "District " + fips,
			Values:   map[string]float64{BandTmeanC: v},
		})
	}
	return agg
}

func TestBuildSummaryTable(t *testing.T) {
	t.Run("ordered by date then region", func(t *testing.T) {
		// Frames arrive out of order; rows must not.
		aggs := []FrameAggregate{
			aggregate(day(2021, 1, 1), map[string]float64{"48001": 1, "48003": 2}),
			aggregate(day(2021, 1, 3), map[string]float64{"48003": 6, "48001": 5}),
			aggregate(day(2021, 1, 2), map[string]float64{"48001": 3, "48003": 4}),
		}
		rows := BuildSummaryTable(aggs)
		require.Len(t, rows, 6)

		type key struct {
			date string
			fips string
		}
		got := make([]key, len(rows))
		for i, r := range rows {
			got[i] = key{r.Date.Format(time.DateOnly), r.FIPS}
		}
		want := []key{
			{"2021-01-01", "48001"},
			{"2021-01-01", "48003"},
			{"2021-01-02", "48001"},
			{"2021-01-02", "48003"},
			{"2021-01-03", "48001"},
			{"2021-01-03", "48003"},
		}
		assert.Empty(t, cmp.Diff(want, got, cmp.AllowUnexported(key{})))
	})

	t.Run("row count is frames times regions", func(t *testing.T) {
		var aggs []FrameAggregate
		for d := 1; d <= 5; d++ {
			aggs = append(aggs, aggregate(day(2021, 2, d), map[string]float64{
				"48001": 1, "48003": 2, "48005": 3,
			}))
		}
		rows := BuildSummaryTable(aggs)
		assert.Len(t, rows, 5*3)
	})

	t.Run("date parts and values", func(t *testing.T) {
		rows := BuildSummaryTable([]FrameAggregate{
			aggregate(day(2021, 7, 14), map[string]float64{"48001": 25.5}),
		})
		require.Len(t, rows, 1)
		assert.Equal(t, "48001", rows[0].FIPS)
		assert.Equal(t, "District 48001", rows[0].District)
		assert.Equal(t, 195, rows[0].DayOfYear)
		assert.Equal(t, 2021, rows[0].Year)
		assert.Equal(t, 25.5, rows[0].Values[BandTmeanC])
	})

	t.Run("duplicate region-date pairs collapse", func(t *testing.T) {
		aggs := []FrameAggregate{
			aggregate(day(2021, 1, 1), map[string]float64{"48001": 1}),
			aggregate(day(2021, 1, 1), map[string]float64{"48001": 99}),
		}
		rows := BuildSummaryTable(aggs)
		require.Len(t, rows, 1)
		assert.Equal(t, 1.0, rows[0].Values[BandTmeanC])
	})

	t.Run("missing dates produce no rows", func(t *testing.T) {
		rows := BuildSummaryTable([]FrameAggregate{
			aggregate(day(2021, 1, 1), map[string]float64{"48001": 1}),
			aggregate(day(2021, 1, 4), map[string]float64{"48001": 2}),
		})
		assert.Len(t, rows, 2)
	})

	t.Run("computed-at uses the injected clock", func(t *testing.T) {
		frozen := time.Date(2026, time.August, 31, 6, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(frozen))
		defer SetClock(nil)

		rows := BuildSummaryTable([]FrameAggregate{
			aggregate(day(2021, 1, 1), map[string]float64{"48001": 1}),
		})
		require.Len(t, rows, 1)
		assert.Equal(t, frozen, rows[0].ComputedAt)
	})
}

func TestRenameColumns(t *testing.T) {
	got := RenameColumns(
		[]string{"district", "fips", BandTmeanC, "tm_anom"},
		map[string]string{BandTmeanC: "mean_temp_c"},
	)
	assert.Equal(t, []string{"district", "fips", "mean_temp_c", "tm_anom"}, got)
}
