package domain

import (
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// RegionValues is one region's aggregate for a single frame: one scalar per
// requested band, NaN where the region had no contributing pixels.
type RegionValues struct {
	FIPS     string
	District string
	Values   map[string]float64
}

// AggregateRegions reduces a frame to one scalar per (region, band): the
// area-weighted mean of pixel values over each region's polygon. A pixel
// straddling a boundary contributes in proportion to the fraction of its
// cell inside the polygon; NaN pixels are masked out. A region intersecting
// no pixels yields NaN for every band and a warning, not an error. Returns a
// MissingBandError if a requested band is absent from the frame.
func AggregateRegions(f Frame, regions []Region, bands []string, logger *slog.Logger) ([]RegionValues, error) {
	grids := make([]Grid, len(bands))
	for i, name := range bands {
		g, ok := f.Band(name)
		if !ok {
			return nil, &MissingBandError{Band: name, Date: f.Date}
		}
		grids[i] = g
	}

	out := make([]RegionValues, 0, len(regions))
	for _, region := range regions {
		values := aggregateOne(f, region, bands, grids)
		if len(values) > 0 && allMissing(values) {
			logger.Warn("region intersects no pixels",
				"fips", region.FIPS,
				"district", region.District,
				"date", f.Date.Format(time.DateOnly),
			)
		}
		out = append(out, RegionValues{
			FIPS:     region.FIPS,
			District: region.District,
			Values:   values,
		})
	}
	return out, nil
}

// aggregateOne computes the weighted means for a single region. Cell weights
// are shared across bands, so the polygon clipping runs once per pixel.
func aggregateOne(f Frame, region Region, bands []string, grids []Grid) map[string]float64 {
	w, h := f.Shape()
	dx, dy := f.CellSize()

	weightSum := make([]float64, len(bands))
	valueSum := make([]float64, len(bands))

	rowMin, rowMax, colMin, colMax := pixelRange(f.Extent, w, h, dx, dy, region.Geometry.Bound())
	cellArea := dx * dy

	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			weight := cellWeight(f.Extent, dx, dy, row, col, cellArea, region.Geometry)
			if weight == 0 {
				continue
			}
			for i, g := range grids {
				v := g.At(row, col)
				if isMissing(v) {
					continue
				}
				weightSum[i] += weight
				valueSum[i] += weight * v
			}
		}
	}

	values := make(map[string]float64, len(bands))
	for i, name := range bands {
		if weightSum[i] == 0 {
			values[name] = math.NaN()
			continue
		}
		values[name] = valueSum[i] / weightSum[i]
	}
	return values
}

// pixelRange clamps the region's bounding box to pixel indices so clipping
// only runs over candidate cells.
func pixelRange(ext Extent, w, h int, dx, dy float64, b orb.Bound) (rowMin, rowMax, colMin, colMax int) {
	colMin = clampIndex(int(math.Floor((b.Min[0]-ext.MinLon)/dx)), w)
	colMax = clampIndex(int(math.Ceil((b.Max[0]-ext.MinLon)/dx))-1, w)
	rowMin = clampIndex(int(math.Floor((ext.MaxLat-b.Max[1])/dy)), h)
	rowMax = clampIndex(int(math.Ceil((ext.MaxLat-b.Min[1])/dy))-1, h)
	return rowMin, rowMax, colMin, colMax
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// cellWeight returns the fraction of the pixel cell at (row, col) covered by
// the region polygon, in [0, 1].
func cellWeight(ext Extent, dx, dy float64, row, col int, cellArea float64, geom orb.MultiPolygon) float64 {
	cell := orb.Bound{
		Min: orb.Point{ext.MinLon + float64(col)*dx, ext.MaxLat - float64(row+1)*dy},
		Max: orb.Point{ext.MinLon + float64(col+1)*dx, ext.MaxLat - float64(row)*dy},
	}

	clipped := clip.Geometry(cell, geom)
	if clipped == nil {
		return 0
	}
	area := math.Abs(planar.Area(clipped))
	if area <= 0 {
		return 0
	}
	weight := area / cellArea
	if weight > 1 {
		weight = 1
	}
	return weight
}

func allMissing(values map[string]float64) bool {
	for _, v := range values {
		if !isMissing(v) {
			return false
		}
	}
	return true
}
