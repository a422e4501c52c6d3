// Package csvout exports summary tables as flat CSV files for downstream
// consumers.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
)

// fixedColumns lead every export, before the variable columns.
var fixedColumns = []string{"district", "fips", "doy", "year"}

// Filename builds the conventional export name:
// <prefix>_<jurisdiction>_<start>_<end>.csv with dates as YYYYMMDD.
func Filename(prefix, jurisdiction string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.csv",
		prefix, jurisdiction, start.Format("20060102"), end.Format("20060102"))
}

// Write emits the summary table: a header of district/fips/doy/year plus the
// variable columns (optionally renamed), then one row per region-day. NaN
// values render as "NaN" so missing data stays distinguishable from zero.
func Write(w io.Writer, columns []string, renames map[string]string, rows []domain.RegionDaySummary) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, fixedColumns...), domain.RenameColumns(columns, renames)...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		record = append(record,
			row.District,
			row.FIPS,
			strconv.Itoa(row.DayOfYear),
			strconv.Itoa(row.Year),
		)
		for _, col := range columns {
			v, ok := row.Values[col]
			if !ok {
				v = math.NaN()
			}
			record = append(record, formatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row (%s, %s): %w", row.FIPS, row.Date.Format(time.DateOnly), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
