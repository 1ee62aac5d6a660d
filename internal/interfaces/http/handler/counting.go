package handler

import (
	"context"

	inventoryapp "github.com/garage-erp/backend/internal/application/inventory"
	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CountingService is the part of inventoryapp.CountingService the API uses
type CountingService interface {
	CreateCounting(ctx context.Context, req inventoryapp.CreateCountingRequest) (*inventoryapp.CountingResult, error)
	GetCounting(ctx context.Context, companyID, countingID uuid.UUID) (*inventoryapp.CountingResult, error)
	Start(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)
	CloseRound(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)
	RequestThirdCount(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)
	Cancel(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)
	SubmitCount(ctx context.Context, req inventoryapp.SubmitCountRequest) (*inventory.CountingItem, error)
	ReconcileCounting(ctx context.Context, companyID, countingID uuid.UUID) (*inventoryapp.ReconcileResult, error)
	OverrideItem(ctx context.Context, req inventoryapp.OverrideItemRequest) (*inventory.CountingItem, error)
	Finalize(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)
}

// CountingHandler serves inventory counting endpoints
type CountingHandler struct {
	BaseHandler
	countings CountingService
}

// NewCountingHandler creates a new CountingHandler
func NewCountingHandler(countings CountingService) *CountingHandler {
	return &CountingHandler{countings: countings}
}

// Create opens a draft counting with its items
// POST /inventory/countings
func (h *CountingHandler) Create(c *gin.Context) {
	var req dto.CreateCountingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}

	specs := make([]inventoryapp.CountingItemSpec, 0, len(req.Items))
	for _, item := range req.Items {
		qty, err := parseQuantity("theoretical_qty", item.TheoreticalQty)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		spec := inventoryapp.CountingItemSpec{
			ProductID:      uuid.MustParse(item.ProductID),
			TheoreticalQty: qty,
		}
		if item.LocationID != "" {
			spec.LocationID = uuid.MustParse(item.LocationID)
		}
		specs = append(specs, spec)
	}

	result, err := h.countings.CreateCounting(c.Request.Context(), inventoryapp.CreateCountingRequest{
		CompanyID:      companyID,
		Number:         req.Number,
		Scope:          req.Scope,
		ExecutionMode:  inventory.ExecutionMode(req.ExecutionMode),
		RequiresCount2: req.RequiresCount2,
		RequiresCount3: req.RequiresCount3,
		Items:          specs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewCountingResponse(result.Counting, result.Items))
}

// Get returns a counting with its items
// GET /inventory/countings/:id?company_id=
func (h *CountingHandler) Get(c *gin.Context) {
	countingID, ok := h.pathUUID(c, "id")
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
	result, err := h.countings.GetCounting(c.Request.Context(), companyID, countingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCountingResponse(result.Counting, result.Items))
}

// Start opens the first count round
// POST /inventory/countings/:id/start
func (h *CountingHandler) Start(c *gin.Context) {
	h.transition(c, h.countings.Start)
}

// CloseRound ends the current round
// POST /inventory/countings/:id/close-round
func (h *CountingHandler) CloseRound(c *gin.Context) {
	h.transition(c, h.countings.CloseRound)
}

// RequestThirdCount reopens a reviewed counting for a tie-breaking count
// POST /inventory/countings/:id/third-count
func (h *CountingHandler) RequestThirdCount(c *gin.Context) {
	h.transition(c, h.countings.RequestThirdCount)
}

// Cancel abandons a counting that is not finalized
// POST /inventory/countings/:id/cancel
func (h *CountingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.countings.Cancel)
}

// Finalize closes a counting whose items are all resolved
// POST /inventory/countings/:id/finalize
func (h *CountingHandler) Finalize(c *gin.Context) {
	h.transition(c, h.countings.Finalize)
}

func (h *CountingHandler) transition(c *gin.Context, fn func(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error)) {
	countingID, ok := h.pathUUID(c, "id")
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
	counting, err := fn(c.Request.Context(), companyID, countingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCountingResponse(counting, nil))
}

// SubmitCount records one count of one item
// POST /inventory/countings/:id/items/:itemId/counts
func (h *CountingHandler) SubmitCount(c *gin.Context) {
	countingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "itemId")
	if !ok {
		return
	}
	var req dto.SubmitCountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	qty, err := parseQuantity("quantity", req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	item, err := h.countings.SubmitCount(c.Request.Context(), inventoryapp.SubmitCountRequest{
		CompanyID:   companyID,
		CountingID:  countingID,
		ItemID:      itemID,
		CountNumber: req.CountNumber,
		Quantity:    qty,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCountingItemResponse(item))
}

// Reconcile resolves every item the submitted counts allow
// POST /inventory/countings/:id/reconcile
func (h *CountingHandler) Reconcile(c *gin.Context) {
	countingID, ok := h.pathUUID(c, "id")
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
	result, err := h.countings.ReconcileCounting(c.Request.Context(), companyID, countingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ReconcileResponse{
		CountingID:         result.CountingID,
		Resolved:           result.Resolved,
		Flagged:            result.Flagged,
		Pending:            result.Pending,
		AwaitingThirdCount: result.AwaitingThirdCount,
		Skipped:            result.Skipped,
		Items:              dto.NewCountingItemResponses(result.Items),
	})
}

// Override sets an item's final quantity from a reviewer decision
// POST /inventory/countings/:id/items/:itemId/override
func (h *CountingHandler) Override(c *gin.Context) {
	countingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "itemId")
	if !ok {
		return
	}
	var req dto.OverrideItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.scopeCompany(c, req.CompanyID)
	if !ok {
		return
	}
	qty, err := parseQuantity("quantity", req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	item, err := h.countings.OverrideItem(c.Request.Context(), inventoryapp.OverrideItemRequest{
		CompanyID:  companyID,
		CountingID: countingID,
		ItemID:     itemID,
		Quantity:   qty,
		Note:       req.Note,
		By:         uuid.MustParse(req.OverriddenBy),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCountingItemResponse(item))
}

var _ CountingService = (*inventoryapp.CountingService)(nil)
