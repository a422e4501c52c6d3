package domain

import (
	"math"
)

// kelvinOffset converts Kelvin to degrees Celsius.
const kelvinOffset = 273.15

// requiredRawBands must all be present before derivation.
var requiredRawBands = []string{
	BandPr, BandRMax, BandRMin, BandTminK, BandTmaxK, BandVPD, BandVS,
}

// DeriveOptions selects optional derivation behavior.
type DeriveOptions struct {
	// LegacyLogPrecip adds a logpr = ln(pr) band, NaN at pr == 0, matching
	// the older export format.
	LegacyLogPrecip bool
}

// DeriveVariables computes the working variable set from a raw gridMET
// frame: Celsius temperature extremes and mean, mean relative humidity,
// pass-through pr/vpd/vs, and optionally logpr. It is a pure transform; the
// input frame is not modified. Returns a MissingBandError if any required
// raw band is absent.
func DeriveVariables(raw Frame, opts DeriveOptions) (Frame, error) {
	for _, name := range requiredRawBands {
		if _, ok := raw.Bands[name]; !ok {
			return Frame{}, &MissingBandError{Band: name, Date: raw.Date}
		}
	}

	tmin := raw.Bands[BandTminK]
	tmax := raw.Bands[BandTmaxK]
	rmax := raw.Bands[BandRMax]
	rmin := raw.Bands[BandRMin]
	pr := raw.Bands[BandPr]

	w, h := tmin.Width, tmin.Height
	tminc := NewGrid(w, h)
	tmaxc := NewGrid(w, h)
	tmeanc := NewGrid(w, h)
	rmean := NewGrid(w, h)

	for i := range tminc.Data {
		tminc.Data[i] = tmin.Data[i] - kelvinOffset
		tmaxc.Data[i] = tmax.Data[i] - kelvinOffset
		tmeanc.Data[i] = (tminc.Data[i] + tmaxc.Data[i]) / 2
		rmean.Data[i] = (rmax.Data[i] + rmin.Data[i]) / 2
	}

	derived := Frame{
		Date:   raw.Date,
		Extent: raw.Extent,
		Bands: map[string]Grid{
			BandTminC:  tminc,
			BandTmaxC:  tmaxc,
			BandTmeanC: tmeanc,
			BandRMean:  rmean,
			BandPr:     clone(pr),
			BandVPD:    clone(raw.Bands[BandVPD]),
			BandVS:     clone(raw.Bands[BandVS]),
		},
	}

	if opts.LegacyLogPrecip {
		logpr := NewGrid(w, h)
		for i, v := range pr.Data {
			// math.Log(0) is -Inf; the legacy format leaves dry pixels
			// undefined rather than carrying infinities downstream.
			if v == 0 {
				logpr.Data[i] = math.NaN()
				continue
			}
			logpr.Data[i] = math.Log(v)
		}
		derived.Bands[BandLogPr] = logpr
	}

	return derived, nil
}

func clone(g Grid) Grid {
	out := Grid{Width: g.Width, Height: g.Height, Data: make([]float64, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}
