package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Request outcomes recorded on http_server_request_total. Conflicts are
// split out because clients retry them.
const (
	OutcomeOK          = "ok"
	OutcomeClientError = "client_error"
	OutcomeConflict    = "conflict"
	OutcomeServerError = "server_error"
)

func outcomeOf(status int) string {
	switch {
	case status == http.StatusConflict:
		return OutcomeConflict
	case status >= http.StatusInternalServerError:
		return OutcomeServerError
	case status >= http.StatusBadRequest:
		return OutcomeClientError
	default:
		return OutcomeOK
	}
}

type httpInstruments struct {
	total    *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	total, err := telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests by route, status and outcome", "{request}")
	duration, derr := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	active, aerr := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err := errors.Join(err, derr, aerr); err != nil {
		return nil, err
	}
	return &httpInstruments{total: total, duration: duration, active: active}, nil
}

// HTTPMetrics records request count, latency and in-flight requests.
// Routes are the matched pattern, never the raw path. A nil meter or an
// instrument error yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	passThrough := func(c *gin.Context) { c.Next() }
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPInstruments(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
		m.total.Inc(ctx, append(attrs,
			telemetry.AttrHTTPStatusCode.Int(status),
			telemetry.AttrOutcome.String(outcomeOf(status)),
		)...)
	}
}
