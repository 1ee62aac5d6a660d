package middleware

import (
	"net/http"
	"strings"

	"github.com/garage-erp/backend/internal/infrastructure/logger"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts an otelgin server span per request, named after the
// matched route. Health probes are not traced.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, "/health/")
	}))
}

// SpanEnricher must run inside Tracing. It tags the span with the request id
// and whether an Idempotency-Key was sent, then, after the handler, with the
// company the handler resolved and the request outcome. Only 5xx responses
// mark the span as failed.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if c.GetHeader(IdempotencyKeyHeader) != "" {
			span.SetAttributes(attribute.Bool("idempotency_key", true))
		}

		c.Next()

		if companyID := logger.GetCompanyID(c.Request.Context()); companyID != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrCompanyID, companyID))
		}
		status := c.Writer.Status()
		span.SetAttributes(attribute.String(string(telemetry.AttrOutcome), outcomeOf(status)))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
