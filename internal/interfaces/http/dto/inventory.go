package dto

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CreateCountingItemRequest is one line of a new counting
type CreateCountingItemRequest struct {
	ProductID      string `json:"product_id" binding:"required,uuid"`
	LocationID     string `json:"location_id" binding:"omitempty,uuid"`
	TheoreticalQty string `json:"theoretical_qty" binding:"required,decimal"`
}

// CreateCountingRequest opens a draft counting
type CreateCountingRequest struct {
	CompanyID      string                      `json:"company_id" binding:"required,uuid"`
	Number         string                      `json:"number" binding:"required,max=50"`
	Scope          string                      `json:"scope" binding:"max=255"`
	ExecutionMode  string                      `json:"execution_mode" binding:"required,oneof=sequential parallel"`
	RequiresCount2 bool                        `json:"requires_count_2"`
	RequiresCount3 bool                        `json:"requires_count_3"`
	Items          []CreateCountingItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SubmitCountRequest records count number CountNumber of one item
type SubmitCountRequest struct {
	CompanyID   string `json:"company_id" binding:"required,uuid"`
	CountNumber int    `json:"count_number" binding:"required,min=1,max=3"`
	Quantity    string `json:"quantity" binding:"required,decimal"`
}

// OverrideItemRequest sets an item's final quantity by hand
type OverrideItemRequest struct {
	CompanyID    string `json:"company_id" binding:"required,uuid"`
	Quantity     string `json:"quantity" binding:"required,decimal"`
	Note         string `json:"note" binding:"required,min=1,max=1000"`
	OverriddenBy string `json:"overridden_by" binding:"required,uuid"`
}

// CountingResponse is a counting in API responses
type CountingResponse struct {
	ID             uuid.UUID  `json:"id"`
	CompanyID      uuid.UUID  `json:"company_id"`
	Number         string     `json:"number"`
	Scope          string     `json:"scope,omitempty"`
	ExecutionMode  string     `json:"execution_mode"`
	Status         string     `json:"status"`
	RequiresCount2 bool       `json:"requires_count_2"`
	RequiresCount3 bool       `json:"requires_count_3"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinalizedAt    *time.Time `json:"finalized_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	Version        int        `json:"version"`

	Items []CountingItemResponse `json:"items,omitempty"`
}

// CountingItemResponse is a counting item in API responses. Quantities are
// fixed-scale decimal strings.
type CountingItemResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProductID        uuid.UUID  `json:"product_id"`
	LocationID       uuid.UUID  `json:"location_id"`
	TheoreticalQty   string     `json:"theoretical_qty"`
	Count1           *string    `json:"count_1,omitempty"`
	Count2           *string    `json:"count_2,omitempty"`
	Count3           *string    `json:"count_3,omitempty"`
	FinalQty         *string    `json:"final_qty,omitempty"`
	Variance         *string    `json:"variance,omitempty"`
	ResolutionMethod string     `json:"resolution_method"`
	IsFlagged        bool       `json:"is_flagged"`
	FlagReason       string     `json:"flag_reason,omitempty"`
	OverrideNote     string     `json:"override_note,omitempty"`
	OverriddenBy     *uuid.UUID `json:"overridden_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	Version          int        `json:"version"`
}

// ReconcileResponse summarizes a reconciliation run
type ReconcileResponse struct {
	CountingID         uuid.UUID              `json:"counting_id"`
	Resolved           int                    `json:"resolved"`
	Flagged            int                    `json:"flagged"`
	Pending            int                    `json:"pending"`
	AwaitingThirdCount int                    `json:"awaiting_third_count"`
	Skipped            int                    `json:"skipped"`
	Items              []CountingItemResponse `json:"items"`
}

// NewCountingResponse converts a counting and, optionally, its items
func NewCountingResponse(c *inventory.InventoryCounting, items []*inventory.CountingItem) CountingResponse {
	resp := CountingResponse{
		ID:             c.ID,
		CompanyID:      c.CompanyID,
		Number:         c.Number,
		Scope:          c.Scope,
		ExecutionMode:  string(c.ExecutionMode),
		Status:         string(c.Status),
		RequiresCount2: c.RequiresCount2,
		RequiresCount3: c.RequiresCount3,
		StartedAt:      c.StartedAt,
		FinalizedAt:    c.FinalizedAt,
		CancelledAt:    c.CancelledAt,
		Version:        c.Version,
	}
	if len(items) > 0 {
		resp.Items = NewCountingItemResponses(items)
	}
	return resp
}

// NewCountingItemResponse converts one item
func NewCountingItemResponse(item *inventory.CountingItem) CountingItemResponse {
	return CountingItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		LocationID:       item.LocationID,
		TheoreticalQty:   item.TheoreticalQty.String(),
		Count1:           quantityString(item.Count1),
		Count2:           quantityString(item.Count2),
		Count3:           quantityString(item.Count3),
		FinalQty:         quantityString(item.FinalQty),
		Variance:         quantityString(item.Variance()),
		ResolutionMethod: string(item.ResolutionMethod),
		IsFlagged:        item.IsFlagged,
		FlagReason:       string(item.FlagReason),
		OverrideNote:     item.OverrideNote,
		OverriddenBy:     item.OverriddenBy,
		ResolvedAt:       item.ResolvedAt,
		Version:          item.Version,
	}
}

// NewCountingItemResponses converts items preserving order
func NewCountingItemResponses(items []*inventory.CountingItem) []CountingItemResponse {
	out := make([]CountingItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCountingItemResponse(item))
	}
	return out
}

func quantityString(q *valueobject.Quantity) *string {
	if q == nil {
		return nil
	}
	s := q.String()
	return &s
}
