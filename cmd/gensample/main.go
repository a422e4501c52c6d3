// Command gensample generates a deterministic sample dataset for local runs
// and demos: a SQLite raster store seeded with synthetic gridMET frames and a
// matching county GeoJSON file.
//
// Usage:
//
//	go run ./cmd/gensample -db data/sample.db -regions data/sample_counties.geojson \
//	  -start 2020-01-01 -days 730
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/adapter/rasterstore"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
)

var sampleExtent = domain.Extent{MinLon: -100, MinLat: 30, MaxLon: -96, MaxLat: 34}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "", "output path for the SQLite raster store")
	regionsPath := flag.String("regions", "", "output path for the county GeoJSON file")
	startArg := flag.String("start", "2020-01-01", "first date to generate, YYYY-MM-DD")
	days := flag.Int("days", 365, "number of consecutive days to generate")
	width := flag.Int("width", 32, "grid width in pixels")
	height := flag.Int("height", 32, "grid height in pixels")
	seed := flag.Int64("seed", 42, "random seed; same seed, same dataset")
	flag.Parse()

	if *dbPath == "" || *regionsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -db, -regions")
	}
	start, err := time.Parse(time.DateOnly, *startArg)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	store, err := rasterstore.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open raster store: %w", err)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	for day := 0; day < *days; day++ {
		date := start.AddDate(0, 0, day)
		f := synthesizeFrame(rng, date, *width, *height)
		if err := store.WriteFrame(ctx, f); err != nil {
			return fmt.Errorf("write frame %s: %w", date.Format(time.DateOnly), err)
		}
	}
	log.Printf("raster store: %d days at %dx%d written to %s", *days, *width, *height, *dbPath)

	if err := writeCounties(*regionsPath); err != nil {
		return err
	}
	log.Printf("counties written to %s", *regionsPath)
	return nil
}

// synthesizeFrame builds one day of raw bands: a seasonal temperature cycle,
// a north-south gradient, and pixel noise. Units match the real archive
// (temperatures in Kelvin, precipitation in mm).
func synthesizeFrame(rng *rand.Rand, date time.Time, width, height int) domain.Frame {
	doy := float64(date.YearDay())
	seasonal := 12 * math.Sin(2*math.Pi*(doy-105)/365.25)

	bands := map[string]domain.Grid{
		domain.BandPr:    domain.NewGrid(width, height),
		domain.BandRMax:  domain.NewGrid(width, height),
		domain.BandRMin:  domain.NewGrid(width, height),
		domain.BandTminK: domain.NewGrid(width, height),
		domain.BandTmaxK: domain.NewGrid(width, height),
		domain.BandVPD:   domain.NewGrid(width, height),
		domain.BandVS:    domain.NewGrid(width, height),
	}

	// Most days are dry; wet days share one event magnitude so precipitation
	// looks like weather instead of static.
	wet := rng.Float64() < 0.25
	event := rng.Float64() * 15

	for row := 0; row < height; row++ {
		// Northern rows run cooler.
		latAdj := -4 * (1 - float64(row)/float64(height))
		for col := 0; col < width; col++ {
			meanC := 18 + seasonal + latAdj + rng.NormFloat64()*1.5
			swing := 5 + rng.Float64()*5

			bands[domain.BandTminK].Set(row, col, meanC-swing+273.15)
			bands[domain.BandTmaxK].Set(row, col, meanC+swing+273.15)

			rmin := clamp(25+rng.NormFloat64()*10, 2, 95)
			bands[domain.BandRMin].Set(row, col, rmin)
			bands[domain.BandRMax].Set(row, col, clamp(rmin+30+rng.NormFloat64()*10, rmin, 100))

			pr := 0.0
			if wet {
				pr = math.Max(0, event+rng.NormFloat64()*3)
			}
			bands[domain.BandPr].Set(row, col, pr)

			bands[domain.BandVPD].Set(row, col, clamp(0.6+seasonal/20+rng.NormFloat64()*0.2, 0.05, 4))
			bands[domain.BandVS].Set(row, col, clamp(3.5+rng.NormFloat64()*1.2, 0.2, 20))
		}
	}

	return domain.Frame{Date: date, Extent: sampleExtent, Bands: bands}
}

// writeCounties lays a 2x2 grid of rectangular counties over the sample
// extent, enough to exercise jurisdiction filtering and zonal weights.
func writeCounties(path string) error {
	fc := geojson.NewFeatureCollection()
	names := []string{"North West", "North East", "South West", "South East"}

	midLon := (sampleExtent.MinLon + sampleExtent.MaxLon) / 2
	midLat := (sampleExtent.MinLat + sampleExtent.MaxLat) / 2
	lons := []float64{sampleExtent.MinLon, midLon, sampleExtent.MaxLon}
	lats := []float64{sampleExtent.MaxLat, midLat, sampleExtent.MinLat}

	for i := 0; i < 4; i++ {
		r, c := i/2, i%2
		ring := orb.Ring{
			{lons[c], lats[r+1]},
			{lons[c+1], lats[r+1]},
			{lons[c+1], lats[r]},
			{lons[c], lats[r]},
			{lons[c], lats[r+1]},
		}
		feature := geojson.NewFeature(orb.Polygon{ring})
		feature.Properties["fips"] = fmt.Sprintf("48%03d", 2*i+1)
		feature.Properties["district"] = names[i]
		fc.Append(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal counties: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write counties: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
