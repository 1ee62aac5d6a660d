package handler

import (
	"context"

	treasuryapp "github.com/garage-erp/backend/internal/application/treasury"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AllocationService is the part of treasuryapp.AllocationService the API uses
type AllocationService interface {
	PreviewAllocation(ctx context.Context, req treasuryapp.PreviewAllocationRequest) (*treasury.AllocationPlan, error)
	ApplyAllocation(ctx context.Context, req treasuryapp.ApplyAllocationRequest) (*treasuryapp.ApplyAllocationResult, error)
}

// ToleranceService is the part of treasuryapp.ToleranceService the API uses
type ToleranceService interface {
	GetToleranceSettings(ctx context.Context, companyID uuid.UUID) (treasury.ToleranceSettings, error)
	CheckTolerance(ctx context.Context, req treasuryapp.CheckToleranceRequest) (treasury.ToleranceResult, error)
}

// TreasuryHandler serves payment allocation and tolerance endpoints
type TreasuryHandler struct {
	BaseHandler
	allocations AllocationService
	tolerance   ToleranceService
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(allocations AllocationService, tolerance ToleranceService) *TreasuryHandler {
	return &TreasuryHandler{allocations: allocations, tolerance: tolerance}
}

// PreviewAllocation computes the allocation of a hypothetical payment
// POST /treasury/allocations/preview
func (h *TreasuryHandler) PreviewAllocation(c *gin.Context) {
	var req dto.PreviewAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	amount, err := parseAmount("payment_amount", req.PaymentAmount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	method, err := treasury.ParseAllocationMethod(req.Method)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	plan, err := h.allocations.PreviewAllocation(c.Request.Context(), treasuryapp.PreviewAllocationRequest{
		CompanyID:     companyID,
		PartnerID:     uuid.MustParse(req.PartnerID),
		PaymentAmount: amount,
		Currency:      currency,
		Method:        method,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAllocationPlanResponse(plan))
}

// ApplyAllocation allocates a recorded payment to the partner's open invoices
// POST /treasury/payments/:id/allocate
func (h *TreasuryHandler) ApplyAllocation(c *gin.Context) {
	paymentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ApplyAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	method, err := treasury.ParseAllocationMethod(req.Method)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.allocations.ApplyAllocation(c.Request.Context(), treasuryapp.ApplyAllocationRequest{
		CompanyID: companyID,
		PaymentID: paymentID,
		Method:    method,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewApplyAllocationResponse(result))
}

// GetToleranceSettings returns the effective tolerance of a company
// GET /treasury/tolerance/:companyId
func (h *TreasuryHandler) GetToleranceSettings(c *gin.Context) {
	companyID, ok := h.scopeCompany(c, c.Param("companyId"))
	if !ok {
		return
	}
	settings, err := h.tolerance.GetToleranceSettings(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewToleranceSettingsResponse(settings))
}

// CheckTolerance decides whether a payment difference may be written off
// POST /treasury/tolerance/check
func (h *TreasuryHandler) CheckTolerance(c *gin.Context) {
	var req dto.CheckToleranceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	invoiceAmount, err := parseAmount("invoice_amount", req.InvoiceAmount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paymentAmount, err := parseAmount("payment_amount", req.PaymentAmount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.tolerance.CheckTolerance(c.Request.Context(), treasuryapp.CheckToleranceRequest{
		CompanyID:     companyID,
		InvoiceAmount: invoiceAmount,
		PaymentAmount: paymentAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewToleranceResultResponse(result))
}

var (
	_ AllocationService = (*treasuryapp.AllocationService)(nil)
	_ ToleranceService  = (*treasuryapp.ToleranceService)(nil)
)
