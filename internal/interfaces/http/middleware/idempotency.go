package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garage-erp/backend/internal/infrastructure/cache"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a retryable POST
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// IdempotencyOptions configures Idempotency
type IdempotencyOptions struct {
	// TTL is how long a completed response is replayed
	TTL time.Duration
	// PendingTTL bounds a reservation whose request never completes
	PendingTTL time.Duration
	Logger     *zap.Logger
}

// captureWriter tees the response body so it can be stored
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request repeated with the
// same Idempotency-Key. Requests without the header pass through. Keys are
// scoped to the company, method and path. Responses are stored unless they are 5xx
// or a retryable 409; those release the key so the client can retry. Store
// failures degrade to normal processing.
func Idempotency(store cache.IdempotencyStore, opts IdempotencyOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeIdempotencyKeyInvalid, "Idempotency-Key must be at most 255 characters", GetRequestID(c)))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			if isBodyTooLarge(err) {
				abortBodyTooLarge(c)
			} else {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeBadRequest, "Request body could not be read", GetRequestID(c)))
			}
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])
		storeKey := c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		if company := companyScope(c, body); company != "" {
			storeKey = company + ":" + storeKey
		}

		ctx := c.Request.Context()
		stored, found, err := store.Lookup(ctx, storeKey)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if found {
			replay(c, stored, fingerprint)
			return
		}

		reserved, err := store.Reserve(ctx, storeKey, opts.PendingTTL)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			inProgress(c)
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// The request context may already be cancelled by the timeout middleware.
		saveCtx := context.WithoutCancel(ctx)
		status := w.Status()
		if status >= http.StatusInternalServerError || status == http.StatusConflict {
			if err := store.Release(saveCtx, storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		resp := cache.StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			Fingerprint: fingerprint,
		}
		if err := store.Complete(saveCtx, storeKey, resp, opts.TTL); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

// companyScope finds the company a request acts for: the companyId path
// parameter, the company_id query or the company_id of a JSON body.
func companyScope(c *gin.Context, body []byte) string {
	if id := c.Param("companyId"); id != "" {
		return id
	}
	if id := c.Query("company_id"); id != "" {
		return id
	}
	var payload struct {
		CompanyID string `json:"company_id"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		return payload.CompanyID
	}
	return ""
}

func replay(c *gin.Context, stored *cache.StoredResponse, fingerprint string) {
	if stored == nil {
		inProgress(c)
		return
	}
	if stored.Fingerprint != fingerprint {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeIdempotencyKeyReused, "Idempotency-Key was already used with a different request body", GetRequestID(c)))
		return
	}
	c.Header(IdempotentReplayHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}

func inProgress(c *gin.Context) {
	resp := dto.NewErrorResponseWithRequestID(
		dto.ErrCodeIdempotencyInProgress, "A request with this Idempotency-Key is still being processed", GetRequestID(c))
	resp.Error.Retryable = true
	c.AbortWithStatusJSON(http.StatusConflict, resp)
}
