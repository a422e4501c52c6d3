// Package domain models daily gridded meteorological data and the
// climate-variable derivation, climatology, anomaly, and zonal-aggregation
// transforms applied to it.
//
// # Data Source
//
// Raw frames follow the gridMET surface meteorology dataset conventions
// (https://www.climatologylab.org/gridmet.html): one multi-band raster per
// calendar day. The raster store delivers frames with these bands:
//
//	pr      precipitation accumulation, mm
//	rmax    maximum relative humidity, %
//	rmin    minimum relative humidity, %
//	tmin_K  minimum near-surface air temperature, Kelvin
//	tmax_K  maximum near-surface air temperature, Kelvin
//	vpd     mean vapor pressure deficit, kPa
//	vs      wind speed at 10m, m/s
//
// # Derived Variables
//
// [DeriveVariables] converts a raw frame into the working variable set:
//
//	tminc  = tmin_K - 273.15
//	tmaxc  = tmax_K - 273.15
//	tmeanc = (tminc + tmaxc) / 2
//	rmean  = (rmax + rmin) / 2
//	pr, vpd, vs pass through unchanged
//	logpr  = ln(pr), legacy mode only
//
// logpr is NaN wherever pr is zero. Older exports log-transformed
// precipitation before anomaly normalization and left those pixels
// undefined; that behavior is preserved verbatim, not imputed.
//
// # Climatology and Anomalies
//
// The climatology is the per-day-of-year baseline over the full historical
// series: for each calendar day-of-year (1..366), the per-pixel mean and
// sample standard deviation (divisor n-1, n = contributing years at that
// pixel) of every band. Day-of-year is the plain calendar ordinal, so leap
// years contribute a day 366 with roughly a quarter of the usual sample.
// Groups with fewer than two contributing years carry a NaN standard
// deviation.
//
// An anomaly is the z-score against that baseline: (value - mean) / stddev,
// NaN wherever the baseline stddev is NaN or zero. Anomaly bands are renamed
// on output (tmeanc → tm_anom, rmean → rhm_anom, vpd → vpd_anom,
// logpr → logpr_anom); bands without a registered name get an "_anom"
// suffix.
//
// # Missing Values
//
// NaN is the single missing-value representation throughout. It is never
// imputed and never raised as an error: undefined pixels flow through every
// transform and surface as NaN cells in the exported table, so downstream
// consumers can tell "no data" from a true zero.
//
// # Regions and Zonal Aggregation
//
// Regions are US counties: a 5-digit FIPS code (2-digit state prefix), a
// display name ("district"), and a WGS-84 multipolygon. A jurisdiction is
// the state FIPS prefix used to restrict an export, with "conus" selecting
// the mainland by excluding state codes 02, 15, 60, 66, 69, 72, and 78
// (Alaska, Hawaii, and the island territories).
//
// Zonal aggregation reduces a band to one scalar per region: the
// area-weighted mean of pixels whose footprint intersects the region
// polygon. A pixel straddling the boundary contributes in proportion to the
// fraction of its cell inside the polygon. NaN pixels are masked out of the
// mean; a region with no intersecting (or only NaN) pixels aggregates to
// NaN, not zero.
package domain
