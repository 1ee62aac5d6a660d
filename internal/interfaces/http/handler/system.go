package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// readinessTimeout bounds the dependency check of the readiness probe
const readinessTimeout = 2 * time.Second

// Pinger checks a dependency, typically the database
type Pinger func(ctx context.Context) error

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	ping      Pinger
}

// NewSystemHandler creates a new SystemHandler. A nil ping makes every
// readiness check succeed.
func NewSystemHandler(name, version string, ping Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		ping:      ping,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns version and uptime
// GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Live answers as long as the process serves requests
// GET /health/live
func (h *SystemHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready answers 503 while the database is unreachable
// GET /health/ready
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				"NOT_READY", "Database is not reachable", getRequestID(c)))
			return
		}
	}
	h.Success(c, gin.H{"status": "ready"})
}
