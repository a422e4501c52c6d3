// Package rasterstore provides the SQLite-backed raster variable store: one
// row per (date, band) holding a little-endian float64 pixel blob plus the
// grid shape and extent. It implements pipeline.FrameSource.
package rasterstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS raster_frames (
	date    TEXT NOT NULL,
	band    TEXT NOT NULL,
	width   INTEGER NOT NULL,
	height  INTEGER NOT NULL,
	min_lon REAL NOT NULL,
	min_lat REAL NOT NULL,
	max_lon REAL NOT NULL,
	max_lat REAL NOT NULL,
	pixels  BLOB NOT NULL,
	PRIMARY KEY (date, band)
);
`

// Store reads daily multi-band frames from a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open raster store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &domain.TransientStoreError{Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init raster store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query returns the frames with start <= date < end carrying the requested
// bands, ordered by date. Dates missing from the store are omitted; a stored
// date missing one of the requested bands still yields a frame without that
// band (the derive stage decides whether that skips it). Query failures are
// transient: the store may live on network storage.
func (s *Store) Query(ctx context.Context, start, end time.Time, bands []string) ([]domain.Frame, error) {
	if len(bands) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(bands))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT date, band, width, height, min_lon, min_lat, max_lon, max_lat, pixels
		FROM raster_frames
		WHERE date >= ? AND date < ? AND band IN (%s)
		ORDER BY date, band`, placeholders)

	args := make([]any, 0, len(bands)+2)
	args = append(args, start.Format(time.DateOnly), end.Format(time.DateOnly))
	for _, b := range bands {
		args = append(args, b)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.TransientStoreError{Err: err}
	}
	defer rows.Close()

	var frames []domain.Frame
	var current *domain.Frame
	for rows.Next() {
		var dateStr, band string
		var width, height int
		var minLon, minLat, maxLon, maxLat float64
		var blob []byte
		if err := rows.Scan(&dateStr, &band, &width, &height, &minLon, &minLat, &maxLon, &maxLat, &blob); err != nil {
			return nil, fmt.Errorf("scan raster row: %w", err)
		}

		date, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in raster store: %w", dateStr, err)
		}
		grid, err := decodePixels(blob, width, height)
		if err != nil {
			return nil, fmt.Errorf("frame %s band %s: %w", dateStr, band, err)
		}

		if current == nil || !current.Date.Equal(date) {
			frames = append(frames, domain.Frame{
				Date:   date,
				Extent: domain.Extent{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat},
				Bands:  make(map[string]domain.Grid),
			})
			current = &frames[len(frames)-1]
		}
		current.Bands[band] = grid
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.TransientStoreError{Err: err}
	}
	return frames, nil
}

// HistoryBounds returns the [start, end) range covering every stored frame.
func (s *Store) HistoryBounds(ctx context.Context) (time.Time, time.Time, error) {
	var minStr, maxStr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM raster_frames`,
	).Scan(&minStr, &maxStr)
	if err != nil {
		return time.Time{}, time.Time{}, &domain.TransientStoreError{Err: err}
	}
	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, fmt.Errorf("raster store is empty")
	}

	start, err := time.Parse(time.DateOnly, minStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad min date %q: %w", minStr.String, err)
	}
	last, err := time.Parse(time.DateOnly, maxStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad max date %q: %w", maxStr.String, err)
	}
	return start, last.AddDate(0, 0, 1), nil
}

// WriteFrame stores every band of a frame, replacing existing rows for the
// same date. Used by the fixture generator and tests.
func (s *Store) WriteFrame(ctx context.Context, f domain.Frame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO raster_frames
		(date, band, width, height, min_lon, min_lat, max_lon, max_lat, pixels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare write: %w", err)
	}
	defer stmt.Close()

	dateStr := f.Date.Format(time.DateOnly)
	for band, grid := range f.Bands {
		_, err := stmt.ExecContext(ctx, dateStr, band, grid.Width, grid.Height,
			f.Extent.MinLon, f.Extent.MinLat, f.Extent.MaxLon, f.Extent.MaxLat,
			encodePixels(grid))
		if err != nil {
			return fmt.Errorf("write frame %s band %s: %w", dateStr, band, err)
		}
	}
	return tx.Commit()
}

func encodePixels(g domain.Grid) []byte {
	buf := make([]byte, 8*len(g.Data))
	for i, v := range g.Data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodePixels(blob []byte, width, height int) (domain.Grid, error) {
	if len(blob) != 8*width*height {
		return domain.Grid{}, fmt.Errorf("pixel blob is %d bytes, want %d for %dx%d",
			len(blob), 8*width*height, width, height)
	}
	g := domain.NewGrid(width, height)
	for i := range g.Data {
		g.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return g, nil
}
