package handler

import (
	"context"

	fiscalapp "github.com/garage-erp/backend/internal/application/fiscal"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VerificationService is the part of fiscalapp.VerificationService the API uses
type VerificationService interface {
	VerifyChain(ctx context.Context, companyID uuid.UUID, chainType fiscal.ChainType) (*fiscalapp.ChainVerification, error)
	VerifyDocument(ctx context.Context, companyID, documentID uuid.UUID) (*fiscalapp.DocumentVerification, error)
}

// FiscalHandler serves fiscal chain verification
type FiscalHandler struct {
	BaseHandler
	verification VerificationService
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler(verification VerificationService) *FiscalHandler {
	return &FiscalHandler{verification: verification}
}

// VerifyChain walks one chain and reports the first break, if any. A broken
// chain is still a 200: the report is the answer.
// GET /fiscal/chains/:companyId/:chainType/verify
func (h *FiscalHandler) VerifyChain(c *gin.Context) {
	companyID, ok := h.scopeCompany(c, c.Param("companyId"))
	if !ok {
		return
	}
	chainType, err := fiscal.ParseChainType(c.Param("chainType"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	report, err := h.verification.VerifyChain(c.Request.Context(), companyID, chainType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// VerifyDocument checks the chain entry written when a document was posted
// GET /fiscal/documents/:id/verify?company_id=
func (h *FiscalHandler) VerifyDocument(c *gin.Context) {
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
	result, err := h.verification.VerifyDocument(c.Request.Context(), companyID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

var _ VerificationService = (*fiscalapp.VerificationService)(nil)
