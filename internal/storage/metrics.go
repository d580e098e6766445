package storage

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/wastetrace/wastetrace/internal/telemetry"
)

// RegisterPoolMetrics exports pgxpool statistics as observable OTEL gauges.
// Call once after telemetry.Init; registration failures are logged, not fatal.
func (db *DB) RegisterPoolMetrics() {
	meter := telemetry.Meter("wastetrace/storage")

	total, err1 := meter.Int64ObservableGauge("wastetrace.db.connections.total",
		metric.WithDescription("Total connections in the pool"))
	idle, err2 := meter.Int64ObservableGauge("wastetrace.db.connections.idle",
		metric.WithDescription("Idle connections in the pool"))
	acquired, err3 := meter.Int64ObservableGauge("wastetrace.db.connections.acquired",
		metric.WithDescription("Connections currently in use"))
	if err1 != nil || err2 != nil || err3 != nil {
		db.logger.Warn("storage: create pool gauges failed")
		return
	}

	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stat := db.pool.Stat()
		o.ObserveInt64(total, int64(stat.TotalConns()))
		o.ObserveInt64(idle, int64(stat.IdleConns()))
		o.ObserveInt64(acquired, int64(stat.AcquiredConns()))
		return nil
	}, total, idle, acquired)
	if err != nil {
		db.logger.Warn("storage: register pool metrics", "error", err)
	}
}
