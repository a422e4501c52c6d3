package domain

import (
	"fmt"
	"time"
)

// MissingBandError reports a required input band absent from a frame.
// The affected frame is skipped; the run continues.
type MissingBandError struct {
	Band string
	Date time.Time
}

func (e *MissingBandError) Error() string {
	return fmt.Sprintf("frame %s: missing required band %q", e.Date.Format(time.DateOnly), e.Band)
}

// BaselineMissingError reports that no climatology entry exists for a
// frame's day-of-year. The frame is excluded from anomaly output only.
type BaselineMissingError struct {
	DayOfYear int
	Date      time.Time
}

func (e *BaselineMissingError) Error() string {
	return fmt.Sprintf("frame %s: no climatology entry for day-of-year %d", e.Date.Format(time.DateOnly), e.DayOfYear)
}

// UnknownJurisdictionError reports a jurisdiction filter that matched no
// regions. Fatal for the invocation.
type UnknownJurisdictionError struct {
	Code string
}

func (e *UnknownJurisdictionError) Error() string {
	return fmt.Sprintf("jurisdiction %q matches no regions", e.Code)
}

// TransientStoreError marks a raster-store failure worth retrying with
// backoff. Exhausting the retry budget surfaces the wrapped error as fatal.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string { return fmt.Sprintf("raster store unavailable: %v", e.Err) }

func (e *TransientStoreError) Unwrap() error { return e.Err }
