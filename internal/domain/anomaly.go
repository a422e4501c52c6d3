package domain

import (
	"math"
)

// anomalyBandNames maps derived bands to their exported anomaly names.
// Bands without an entry get an "_anom" suffix.
var anomalyBandNames = map[string]string{
	BandTmeanC: "tm_anom",
	BandRMean:  "rhm_anom",
	BandVPD:    "vpd_anom",
	BandLogPr:  "logpr_anom",
}

// AnomalyBandName returns the exported name for a band's anomaly.
func AnomalyBandName(band string) string {
	if name, ok := anomalyBandNames[band]; ok {
		return name
	}
	return band + "_anom"
}

// Normalize computes the standardized anomaly of a derived frame against the
// climatological baseline for its day-of-year: (value - mean) / stddev per
// pixel, for every band present in both the frame and the baseline. Pixels
// with a NaN or zero baseline stddev are NaN in the output. Returns a
// BaselineMissingError when the climatology has no entry for the frame's
// day-of-year.
func Normalize(f Frame, clim *Climatology) (Frame, error) {
	doy := f.DayOfYear()
	entry, ok := clim.Entry(doy)
	if !ok {
		return Frame{}, &BaselineMissingError{DayOfYear: doy, Date: f.Date}
	}

	out := Frame{
		Date:   f.Date,
		Extent: f.Extent,
		Bands:  make(map[string]Grid, len(f.Bands)),
	}
	for name, g := range f.Bands {
		mean, ok := entry.Mean[name]
		if !ok {
			continue
		}
		std := entry.Stddev[name]

		anom := NewGrid(g.Width, g.Height)
		for i, v := range g.Data {
			s := std.Data[i]
			if isMissing(v) || isMissing(mean.Data[i]) || isMissing(s) || s == 0 {
				anom.Data[i] = math.NaN()
				continue
			}
			anom.Data[i] = (v - mean.Data[i]) / s
		}
		out.Bands[AnomalyBandName(name)] = anom
	}
	return out, nil
}
