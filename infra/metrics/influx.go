package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/shuttleops/dispatchboard/infra/logger"

	coremetrics "github.com/shuttleops/dispatchboard/core/metrics"
)

// InfluxSink writes mutation and board events to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails, so a missing analytics backend never
// blocks dispatching.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MutationSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordMutation writes each command as a point.
func (s *InfluxSink) RecordMutation(records []coremetrics.MutationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range records {
		failed := "false"
		if r.Error != "" {
			failed = "true"
		}
		p := write.NewPointWithMeasurement("mutation_event").
			AddTag("op", r.Op).
			AddTag("driver_id", r.DriverID).
			AddTag("failed", failed).
			AddTag("command_id", r.CommandID).
			AddField("bookings", len(r.BookingIDs)).
			AddField("latency_ms", float64(r.Latency.Milliseconds())).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordBoardRecompute writes one recompute cycle as a point.
func (s *InfluxSink) RecordBoardRecompute(rec coremetrics.BoardRecompute) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("board_recompute").
		AddField("bookings", rec.Bookings).
		AddField("drivers", rec.Drivers).
		AddField("unassigned", rec.Unassigned).
		AddField("latency_ms", float64(rec.Duration.Milliseconds())).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
