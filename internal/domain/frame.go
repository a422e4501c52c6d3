package domain

import (
	"math"
	"time"
)

// Raw gridMET band names as delivered by the raster store.
const (
	BandPr    = "pr"
	BandRMax  = "rmax"
	BandRMin  = "rmin"
	BandTminK = "tmin_K"
	BandTmaxK = "tmax_K"
	BandVPD   = "vpd"
	BandVS    = "vs"
)

// Derived band names produced by DeriveVariables.
const (
	BandRMean  = "rmean"
	BandTminC  = "tminc"
	BandTmaxC  = "tmaxc"
	BandTmeanC = "tmeanc"
	BandLogPr  = "logpr"
)

// Extent is the geographic bounding box of a frame in WGS-84 degrees.
// Pixel row 0 is the northern edge; pixel column 0 is the western edge.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Grid is a dense row-major raster band. NaN marks missing pixels.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height int) Grid {
	return Grid{Width: width, Height: height, Data: make([]float64, width*height)}
}

// NewGridFilled allocates a grid with every pixel set to v.
func NewGridFilled(width, height int, v float64) Grid {
	g := NewGrid(width, height)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// At returns the pixel value at (row, col).
func (g Grid) At(row, col int) float64 { return g.Data[row*g.Width+col] }

// Set assigns the pixel value at (row, col).
func (g Grid) Set(row, col int, v float64) { g.Data[row*g.Width+col] = v }

// Frame is one day's raster: named bands sharing a single grid shape and
// geographic extent. Frames are immutable once produced and safe to share
// across goroutines.
type Frame struct {
	Date   time.Time
	Extent Extent
	Bands  map[string]Grid
}

// DayOfYear returns the 1-based calendar ordinal of the frame's date (1..366).
func (f Frame) DayOfYear() int { return f.Date.YearDay() }

// Band returns the named band grid, reporting whether it exists.
func (f Frame) Band(name string) (Grid, bool) {
	g, ok := f.Bands[name]
	return g, ok
}

// Shape returns the pixel dimensions shared by all bands. A frame with no
// bands has shape (0, 0).
func (f Frame) Shape() (width, height int) {
	for _, g := range f.Bands {
		return g.Width, g.Height
	}
	return 0, 0
}

// CellSize returns the pixel footprint in degrees along each axis.
func (f Frame) CellSize() (dx, dy float64) {
	w, h := f.Shape()
	if w == 0 || h == 0 {
		return 0, 0
	}
	return (f.Extent.MaxLon - f.Extent.MinLon) / float64(w),
		(f.Extent.MaxLat - f.Extent.MinLat) / float64(h)
}

// isMissing reports whether v is the missing-value sentinel.
func isMissing(v float64) bool { return math.IsNaN(v) }
