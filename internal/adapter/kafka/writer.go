// Package kafka publishes region-day summary rows to the sink topic
// consumed by the downstream forecasting service.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/gridmet-zonal-etl/internal/config"
	"github.com/couchcryptid/gridmet-zonal-etl/internal/domain"
)

// Writer produces summary rows to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSummaries serializes and publishes the rows of one batch run in a
// single WriteMessages call for efficiency.
func (w *Writer) PublishSummaries(ctx context.Context, jurisdiction string, columns []string, rows []domain.RegionDaySummary) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(jurisdiction, columns, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// summaryPayload is the wire form of one row. Values are pointers so NaN
// serializes as null instead of breaking JSON encoding.
type summaryPayload struct {
	District  string              `json:"district"`
	FIPS      string              `json:"fips"`
	Date      string              `json:"date"`
	DayOfYear int                 `json:"doy"`
	Year      int                 `json:"year"`
	Values    map[string]*float64 `json:"values"`
}

// serializeToMessage marshals a summary row into a Kafka message keyed by
// fips and date, so re-exports of the same range compact cleanly.
func serializeToMessage(jurisdiction string, columns []string, row domain.RegionDaySummary) (kafkago.Message, error) {
	payload := summaryPayload{
		District:  row.District,
		FIPS:      row.FIPS,
		Date:      row.Date.Format(time.DateOnly),
		DayOfYear: row.DayOfYear,
		Year:      row.Year,
		Values:    make(map[string]*float64, len(columns)),
	}
	for _, col := range columns {
		v, ok := row.Values[col]
		if !ok || math.IsNaN(v) {
			payload.Values[col] = nil
			continue
		}
		payload.Values[col] = &v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary row (%s, %s): %w", row.FIPS, payload.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(row.FIPS + ":" + payload.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "jurisdiction", Value: []byte(jurisdiction)},
			{Key: "computed_at", Value: []byte(row.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
