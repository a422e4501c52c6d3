package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// testExtent is a 4×4-degree box; with 4×4-pixel grids each cell is 1°×1°.
var testExtent = Extent{MinLon: -100, MinLat: 30, MaxLon: -96, MaxLat: 34}

func constGrid(w, h int, v float64) Grid {
	return NewGridFilled(w, h, v)
}

// makeRawFrame builds a raw gridMET frame with every band constant.
func makeRawFrame(date time.Time, w, h int, values map[string]float64) Frame {
	bands := make(map[string]Grid, len(values))
	for name, v := range values {
		bands[name] = constGrid(w, h, v)
	}
	return Frame{Date: date, Extent: testExtent, Bands: bands}
}

// defaultRawValues covers every required band with distinct constants.
func defaultRawValues() map[string]float64 {
	return map[string]float64{
		BandPr:    4.2,
		BandRMax:  80,
		BandRMin:  40,
		BandTminK: 283.15,
		BandTmaxK: 293.15,
		BandVPD:   0.9,
		BandVS:    3.1,
	}
}

// dayOfYearDate returns the date with the given 1-based day-of-year.
func dayOfYearDate(year, doy int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
}

// squarePolygon builds a rectangular region geometry from lon/lat corners.
func squarePolygon(minLon, minLat, maxLon, maxLat float64) orb.MultiPolygon {
	return orb.MultiPolygon{{
		{
			{minLon, minLat},
			{maxLon, minLat},
			{maxLon, maxLat},
			{minLon, maxLat},
			{minLon, minLat},
		},
	}}
}
