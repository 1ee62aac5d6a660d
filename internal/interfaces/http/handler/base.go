package handler

import (
	"net/http"

	"github.com/garage-erp/backend/internal/infrastructure/logger"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/garage-erp/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the id set by the RequestID middleware, falling back
// to the raw header
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError writes err as a response. Domain errors are mapped by kind;
// anything else is logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, resp, isDomain := dto.ErrorResponseFor(err, getRequestID(c))
	if !isDomain {
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// bindJSON decodes and validates the body, answering 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery is bindJSON for query parameters
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathUUID parses the named path parameter, answering 400 on failure
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// scopeCompany parses the company id and binds it to the request context
// so the access log and spans carry it. Binding tags already checked the
// format, so a parse failure here is a programming error answered with 400.
func (h *BaseHandler) scopeCompany(c *gin.Context, raw string) (uuid.UUID, bool) {
	companyID, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid company_id: must be a UUID")
		return uuid.Nil, false
	}
	ctx := c.Request.Context()
	ctx, _ = logger.WithCompanyID(ctx, logger.FromContext(ctx), companyID.String())
	c.Request = c.Request.WithContext(ctx)
	return companyID, true
}
