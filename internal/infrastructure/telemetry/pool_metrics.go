package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// PoolStats reports the state of a connection pool, e.g. persistence.Database.Stats
type PoolStats func() (sql.DBStats, error)

// RegisterPoolMetrics observes the pool on every collection. Unregister the
// returned registration before closing the pool.
func RegisterPoolMetrics(meter metric.Meter, stats PoolStats) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	conns, errConns := meter.Int64ObservableGauge("erp_db_pool_connections",
		metric.WithDescription("Connections in the database pool by state"),
		metric.WithUnit("{connection}"))
	maxConns, errMax := meter.Int64ObservableGauge("erp_db_pool_connections_max",
		metric.WithDescription("Maximum open connections allowed"),
		metric.WithUnit("{connection}"))
	waits, errWaits := meter.Int64ObservableCounter("erp_db_pool_waits_total",
		metric.WithDescription("Connection requests that had to wait"),
		metric.WithUnit("{wait}"))
	if err := errors.Join(errConns, errMax, errWaits); err != nil {
		return nil, fmt.Errorf("failed to create pool instruments: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s, err := stats()
		if err != nil {
			return err
		}
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrPoolState.String("in_use")))
		o.ObserveInt64(maxConns, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, maxConns, waits)
}
