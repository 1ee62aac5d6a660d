package handler

import (
	"context"

	documentapp "github.com/garage-erp/backend/internal/application/document"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PostingService is the part of documentapp.PostingService the API uses
type PostingService interface {
	Confirm(ctx context.Context, companyID, documentID uuid.UUID) (*documentapp.DocumentResult, error)
	Post(ctx context.Context, companyID, documentID uuid.UUID) (*documentapp.DocumentResult, error)
	Cancel(ctx context.Context, companyID, documentID uuid.UUID, reason string) (*documentapp.DocumentResult, error)
	Delete(ctx context.Context, companyID, documentID uuid.UUID) error
}

// DocumentHandler serves document lifecycle endpoints
type DocumentHandler struct {
	BaseHandler
	posting PostingService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(posting PostingService) *DocumentHandler {
	return &DocumentHandler{posting: posting}
}

// Confirm moves a draft to confirmed
// POST /documents/:id/confirm
func (h *DocumentHandler) Confirm(c *gin.Context) {
	h.transition(c, h.posting.Confirm)
}

// Post posts a confirmed document; fiscal documents get their chain entry
// POST /documents/:id/post
func (h *DocumentHandler) Post(c *gin.Context) {
	h.transition(c, h.posting.Post)
}

func (h *DocumentHandler) transition(c *gin.Context, fn func(ctx context.Context, companyID, documentID uuid.UUID) (*documentapp.DocumentResult, error)) {
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), companyID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel cancels a document. The fiscal chain keeps its entry.
// POST /documents/:id/cancel
func (h *DocumentHandler) Cancel(c *gin.Context) {
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	result, err := h.posting.Cancel(c.Request.Context(), companyID, documentID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete removes a document that was never posted
// DELETE /documents/:id?company_id=
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var q dto.CompanyQuery
	if !h.bindQuery(c, &q) {
		return
	}
	companyID, ok := h.scopeCompany(c, q.CompanyID)
	if !ok {
		return
	}
	if err := h.posting.Delete(c.Request.Context(), companyID, documentID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

var _ PostingService = (*documentapp.PostingService)(nil)
