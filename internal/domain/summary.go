package domain

import (
	"sort"
	"time"
)

// FrameAggregate is one frame's worth of zonal aggregates.
type FrameAggregate struct {
	Date    time.Time
	Regions []RegionValues
}

// RegionDaySummary is one exported row: a region on a date, with one value
// per requested variable. At most one row exists per (FIPS, date) pair.
type RegionDaySummary struct {
	District   string             `json:"district"`
	FIPS       string             `json:"fips"`
	DayOfYear  int                `json:"doy"`
	Year       int                `json:"year"`
	Date       time.Time          `json:"date"`
	Values     map[string]float64 `json:"-"`
	ComputedAt time.Time          `json:"computed_at"`
}

// BuildSummaryTable flattens per-frame aggregates into the export row set,
// ordered by date then FIPS for reproducible output. Dates with no aggregate
// produce no rows; duplicate (region, date) pairs collapse to the first
// occurrence.
func BuildSummaryTable(aggs []FrameAggregate) []RegionDaySummary {
	sort.SliceStable(aggs, func(i, j int) bool { return aggs[i].Date.Before(aggs[j].Date) })

	now := clock.Now()
	seen := make(map[string]bool)
	var rows []RegionDaySummary
	for _, agg := range aggs {
		regions := make([]RegionValues, len(agg.Regions))
		copy(regions, agg.Regions)
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].FIPS < regions[j].FIPS })

		dateKey := agg.Date.Format(time.DateOnly)
		for _, rv := range regions {
			key := rv.FIPS + "|" + dateKey
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, RegionDaySummary{
				District:   rv.District,
				FIPS:       rv.FIPS,
				DayOfYear:  agg.Date.YearDay(),
				Year:       agg.Date.Year(),
				Date:       agg.Date,
				Values:     rv.Values,
				ComputedAt: now,
			})
		}
	}
	return rows
}

// RenameColumns applies a declarative internal→external column name mapping
// as the final export step. Columns without a mapping pass through.
func RenameColumns(columns []string, renames map[string]string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if name, ok := renames[c]; ok {
			out[i] = name
			continue
		}
		out[i] = c
	}
	return out
}
