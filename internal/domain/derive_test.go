package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTolerance = 1e-9

func TestDeriveVariables(t *testing.T) {
	date := time.Date(2021, time.July, 14, 0, 0, 0, 0, time.UTC)

	t.Run("temperature conversion is exact", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		tminc, ok := derived.Band(BandTminC)
		require.True(t, ok)
		tmaxc, _ := derived.Band(BandTmaxC)
		tmeanc, _ := derived.Band(BandTmeanC)

		for i := range tminc.Data {
			assert.InDelta(t, 283.15-273.15, tminc.Data[i], floatTolerance)
			assert.InDelta(t, 293.15-273.15, tmaxc.Data[i], floatTolerance)
			assert.InDelta(t, (tminc.Data[i]+tmaxc.Data[i])/2, tmeanc.Data[i], floatTolerance)
		}
	})

	t.Run("humidity mean", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		rmean, ok := derived.Band(BandRMean)
		require.True(t, ok)
		assert.InDelta(t, 60.0, rmean.At(0, 0), floatTolerance)
	})

	t.Run("pass-through bands unchanged", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		for _, name := range []string{BandPr, BandVPD, BandVS} {
			got, ok := derived.Band(name)
			require.True(t, ok, name)
			assert.Equal(t, raw.Bands[name].Data, got.Data, name)
		}
	})

	t.Run("frame metadata preserved", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		assert.Equal(t, date, derived.Date)
		assert.Equal(t, testExtent, derived.Extent)
		assert.Equal(t, 195, derived.DayOfYear())
	})

	t.Run("missing band skips the frame", func(t *testing.T) {
		values := defaultRawValues()
		delete(values, BandVPD)
		raw := makeRawFrame(date, 4, 4, values)

		_, err := DeriveVariables(raw, DeriveOptions{})
		require.Error(t, err)

		var missing *MissingBandError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, BandVPD, missing.Band)
		assert.Equal(t, date, missing.Date)
		assert.Contains(t, err.Error(), "2021-07-14")
	})

	t.Run("no logpr without legacy mode", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		_, ok := derived.Band(BandLogPr)
		assert.False(t, ok)
	})

	t.Run("legacy logpr", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		raw.Bands[BandPr].Set(1, 2, 0) // dry pixel

		derived, err := DeriveVariables(raw, DeriveOptions{LegacyLogPrecip: true})
		require.NoError(t, err)

		logpr, ok := derived.Band(BandLogPr)
		require.True(t, ok)
		assert.InDelta(t, math.Log(4.2), logpr.At(0, 0), floatTolerance)
		assert.True(t, math.IsNaN(logpr.At(1, 2)), "logpr at pr==0 must be NaN")
	})

	t.Run("input frame is not mutated", func(t *testing.T) {
		raw := makeRawFrame(date, 4, 4, defaultRawValues())
		derived, err := DeriveVariables(raw, DeriveOptions{})
		require.NoError(t, err)

		pr, _ := derived.Band(BandPr)
		pr.Set(0, 0, -1)
		assert.Equal(t, 4.2, raw.Bands[BandPr].At(0, 0))
	})
}

func TestDeriveVariables_ErrorIsTyped(t *testing.T) {
	raw := Frame{Date: time.Now(), Bands: map[string]Grid{}}
	_, err := DeriveVariables(raw, DeriveOptions{})

	var missing *MissingBandError
	assert.True(t, errors.As(err, &missing))
}
