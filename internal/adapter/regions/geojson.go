// Package regions loads the county reference data: a GeoJSON
// FeatureCollection with fips and district properties and WGS-84 polygon
// geometries. The data is owned externally and read-only here.
package regions

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
)

// Load reads a county FeatureCollection from a file.
func Load(path string) ([]domain.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	regs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse regions file %s: %w", path, err)
	}
	return regs, nil
}

// Parse decodes a GeoJSON FeatureCollection into regions. Every feature
// needs a fips property (string or number — upstream exports disagree), a
// district or name property, and a Polygon or MultiPolygon geometry.
func Parse(data []byte) ([]domain.Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	regs := make([]domain.Region, 0, len(fc.Features))
	for i, feature := range fc.Features {
		fips := stringProperty(feature, "fips")
		if fips == "" {
			return nil, fmt.Errorf("feature %d: missing fips property", i)
		}
		district := stringProperty(feature, "district")
		if district == "" {
			district = stringProperty(feature, "name")
		}

		var geometry orb.MultiPolygon
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			geometry = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			geometry = g
		default:
			return nil, fmt.Errorf("feature %d (fips %s): unsupported geometry %T", i, fips, feature.Geometry)
		}

		regs = append(regs, domain.Region{
			FIPS:     fips,
			District: district,
			Geometry: geometry,
		})
	}
	return regs, nil
}

func stringProperty(f *geojson.Feature, key string) string {
	switch v := f.Properties[key].(type) {
	case string:
		return v
	case float64:
		// County FIPS codes are 5 digits; restore the leading zero JSON
		// number encoding drops.
		return fmt.Sprintf("%05.0f", v)
	default:
		return ""
	}
}
