package domain

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// Region is one county: a stable FIPS identifier, a display name, and a
// WGS-84 multipolygon. Reference data owned externally; read-only here.
type Region struct {
	FIPS     string
	District string
	Geometry orb.MultiPolygon
}

// StateCode returns the 2-digit state FIPS prefix of the region code.
func (r Region) StateCode() string {
	code := r.FIPS
	// County FIPS is 5 digits; tolerate codes stored without the leading zero.
	if len(code) == 4 {
		code = "0" + code
	}
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

// JurisdictionCONUS selects the mainland US: every region except the
// non-mainland state codes below.
const JurisdictionCONUS = "conus"

// nonMainlandStates are the state FIPS codes excluded from CONUS exports:
// Alaska, Hawaii, American Samoa, Guam, Northern Marianas, Puerto Rico,
// and the US Virgin Islands.
var nonMainlandStates = map[string]bool{
	"02": true, "15": true, "60": true, "66": true, "69": true, "72": true, "78": true,
}

// FilterJurisdiction restricts regions to one jurisdiction: a state FIPS
// code (with or without leading zero) or JurisdictionCONUS. Returns an
// UnknownJurisdictionError when nothing matches.
func FilterJurisdiction(regions []Region, code string) ([]Region, error) {
	normalized, err := normalizeJurisdiction(code)
	if err != nil {
		return nil, err
	}

	var out []Region
	for _, r := range regions {
		switch {
		case normalized == JurisdictionCONUS:
			if !nonMainlandStates[r.StateCode()] {
				out = append(out, r)
			}
		case r.StateCode() == normalized:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, &UnknownJurisdictionError{Code: code}
	}
	return out, nil
}

func normalizeJurisdiction(code string) (string, error) {
	if code == JurisdictionCONUS {
		return code, nil
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return "", &UnknownJurisdictionError{Code: code}
	}
	return fmt.Sprintf("%02d", n), nil
}
