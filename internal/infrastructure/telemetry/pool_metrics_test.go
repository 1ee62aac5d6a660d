package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestRegisterPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	stats := sql.DBStats{MaxOpenConnections: 25, OpenConnections: 4, InUse: 3, Idle: 1, WaitCount: 7}
	reg, err := RegisterPoolMetrics(provider.Meter("test"), func() (sql.DBStats, error) { return stats, nil })
	require.NoError(t, err)

	data := collect(t, reader)

	conns, ok := data["erp_db_pool_connections"].(metricdata.Gauge[int64])
	require.True(t, ok)
	byState := map[string]int64{}
	for _, dp := range conns.DataPoints {
		state, _ := dp.Attributes.Value(AttrPoolState)
		byState[state.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"idle": 1, "in_use": 3}, byState)

	maxConns, ok := data["erp_db_pool_connections_max"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, maxConns.DataPoints, 1)
	assert.Equal(t, int64(25), maxConns.DataPoints[0].Value)

	waits, ok := data["erp_db_pool_waits_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, waits.DataPoints, 1)
	assert.Equal(t, int64(7), waits.DataPoints[0].Value)

	require.NoError(t, reg.Unregister())
}

func TestRegisterPoolMetrics_StatsError(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, err := RegisterPoolMetrics(provider.Meter("test"), func() (sql.DBStats, error) {
		return sql.DBStats{}, errors.New("pool closed")
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	assert.Error(t, reader.Collect(context.Background(), &rm))
}

func TestRegisterPoolMetrics_NilMeter(t *testing.T) {
	_, err := RegisterPoolMetrics(nil, nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
