package dto

import (
	"time"

	treasuryapp "github.com/garage-erp/backend/internal/application/treasury"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PreviewAllocationRequest asks for the plan of a hypothetical payment
type PreviewAllocationRequest struct {
	CompanyID     string `json:"company_id" binding:"required,uuid"`
	PartnerID     string `json:"partner_id" binding:"required,uuid"`
	PaymentAmount string `json:"payment_amount" binding:"required,decimal"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
	Method        string `json:"method" binding:"omitempty,max=32"`
}

// ApplyAllocationRequest allocates the payment named in the path
type ApplyAllocationRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
	Method    string `json:"method" binding:"omitempty,max=32"`
}

// CheckToleranceRequest asks whether a payment difference may be written off
type CheckToleranceRequest struct {
	CompanyID     string `json:"company_id" binding:"required,uuid"`
	InvoiceAmount string `json:"invoice_amount" binding:"required,decimal"`
	PaymentAmount string `json:"payment_amount" binding:"required,decimal"`
}

// Treasury amounts are fixed 4-decimal strings, as stored
func amountString(d decimal.Decimal) string {
	return d.StringFixed(valueobject.TreasuryScale)
}

// optional maps an empty enum value to null
func optional[T ~string](v T) *string {
	if v == "" {
		return nil
	}
	s := string(v)
	return &s
}

// ToleranceSettingsResponse is the effective tolerance of a company
type ToleranceSettingsResponse struct {
	Enabled    bool   `json:"enabled"`
	Percentage string `json:"percentage"`
	MaxAmount  string `json:"max_amount"`
	Source     string `json:"source"`
}

// NewToleranceSettingsResponse converts resolved settings
func NewToleranceSettingsResponse(s treasury.ToleranceSettings) ToleranceSettingsResponse {
	return ToleranceSettingsResponse{
		Enabled:    s.Enabled,
		Percentage: amountString(s.Percentage),
		MaxAmount:  amountString(s.MaxAmount),
		Source:     string(s.Source),
	}
}

// ToleranceResultResponse is the outcome of a tolerance check. Type is null
// when the amounts match.
type ToleranceResultResponse struct {
	Qualifies  bool    `json:"qualifies"`
	Difference string  `json:"difference"`
	Type       *string `json:"type"`
	Reason     string  `json:"reason,omitempty"`
}

// NewToleranceResultResponse converts a tolerance result
func NewToleranceResultResponse(r treasury.ToleranceResult) ToleranceResultResponse {
	return ToleranceResultResponse{
		Qualifies:  r.Qualifies,
		Difference: amountString(r.Difference),
		Type:       optional(r.Type),
		Reason:     r.Reason,
	}
}

// AllocationLineResponse is one planned invoice assignment
type AllocationLineResponse struct {
	DocumentID        uuid.UUID `json:"document_id"`
	DocumentNumber    string    `json:"document_number"`
	BalanceBefore     string    `json:"balance_before"`
	Amount            string    `json:"amount"`
	ToleranceWriteoff string    `json:"tolerance_writeoff"`
	WriteoffType      *string   `json:"writeoff_type"`
	BalanceAfter      string    `json:"balance_after"`
	FullySettled      bool      `json:"fully_settled"`
}

// AllocationPlanResponse is a previewed or applied plan. ExcessHandling is
// null when the payment is used up exactly.
type AllocationPlanResponse struct {
	Method             string                    `json:"method"`
	PaymentAmount      string                    `json:"payment_amount"`
	Allocations        []AllocationLineResponse  `json:"allocations"`
	TotalToInvoices    string                    `json:"total_to_invoices"`
	ToleranceWriteoffs string                    `json:"tolerance_writeoffs"`
	ExcessAmount       string                    `json:"excess_amount"`
	ExcessHandling     *string                   `json:"excess_handling"`
	CreditBalance      string                    `json:"credit_balance"`
	Tolerance          ToleranceSettingsResponse `json:"tolerance"`
}

// NewAllocationPlanResponse converts a plan, keeping line order
func NewAllocationPlanResponse(p *treasury.AllocationPlan) AllocationPlanResponse {
	lines := make([]AllocationLineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, AllocationLineResponse{
			DocumentID:        l.DocumentID,
			DocumentNumber:    l.DocumentNumber,
			BalanceBefore:     amountString(l.BalanceBefore),
			Amount:            amountString(l.Amount),
			ToleranceWriteoff: amountString(l.ToleranceWriteoff),
			WriteoffType:      optional(l.WriteoffType),
			BalanceAfter:      amountString(l.BalanceAfter),
			FullySettled:      l.FullySettled,
		})
	}
	return AllocationPlanResponse{
		Method:             p.Method.String(),
		PaymentAmount:      amountString(p.PaymentAmount),
		Allocations:        lines,
		TotalToInvoices:    amountString(p.TotalToInvoices),
		ToleranceWriteoffs: amountString(p.ToleranceWriteoffs),
		ExcessAmount:       amountString(p.ExcessAmount),
		ExcessHandling:     optional(p.ExcessHandling),
		CreditBalance:      amountString(p.CreditBalance),
		Tolerance:          NewToleranceSettingsResponse(p.Tolerance),
	}
}

// PaymentAllocationResponse is a persisted allocation row
type PaymentAllocationResponse struct {
	ID                uuid.UUID `json:"id"`
	PaymentID         uuid.UUID `json:"payment_id"`
	DocumentID        uuid.UUID `json:"document_id"`
	Amount            string    `json:"amount"`
	ToleranceWriteoff string    `json:"tolerance_writeoff"`
	WriteoffType      *string   `json:"writeoff_type"`
	CreatedAt         time.Time `json:"created_at"`
}

// ApplyAllocationResponse is the result of allocating a recorded payment
type ApplyAllocationResponse struct {
	Success       bool                        `json:"success"`
	PaymentID     uuid.UUID                   `json:"payment_id"`
	PaymentStatus string                      `json:"payment_status"`
	Plan          *AllocationPlanResponse     `json:"plan"`
	Allocations   []PaymentAllocationResponse `json:"allocations"`
}

// NewApplyAllocationResponse converts an applied allocation
func NewApplyAllocationResponse(r *treasuryapp.ApplyAllocationResult) ApplyAllocationResponse {
	resp := ApplyAllocationResponse{
		Success:       r.Success,
		PaymentID:     r.PaymentID,
		PaymentStatus: r.PaymentStatus.String(),
		Allocations:   make([]PaymentAllocationResponse, 0, len(r.Allocations)),
	}
	if r.Plan != nil {
		plan := NewAllocationPlanResponse(r.Plan)
		resp.Plan = &plan
	}
	for _, a := range r.Allocations {
		resp.Allocations = append(resp.Allocations, PaymentAllocationResponse{
			ID:                a.ID,
			PaymentID:         a.PaymentID,
			DocumentID:        a.DocumentID,
			Amount:            amountString(a.Amount),
			ToleranceWriteoff: amountString(a.ToleranceWriteoff),
			WriteoffType:      optional(a.WriteoffType),
			CreatedAt:         a.CreatedAt,
		})
	}
	return resp
}
