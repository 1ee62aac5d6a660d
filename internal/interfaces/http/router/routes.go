package router

import (
	"github.com/garage-erp/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the API handlers mounted by Mount
type Handlers struct {
	Treasury *handler.TreasuryHandler
	Document *handler.DocumentHandler
	Counting *handler.CountingHandler
	Fiscal   *handler.FiscalHandler
	System   *handler.SystemHandler

	// Idempotency guards the POSTs that must not run twice. Nil disables it.
	Idempotency gin.HandlerFunc
}

func (h Handlers) idempotent(fn gin.HandlerFunc) []gin.HandlerFunc {
	if h.Idempotency == nil {
		return []gin.HandlerFunc{fn}
	}
	return []gin.HandlerFunc{h.Idempotency, fn}
}

// Mount registers probes at the root and every domain under /api/v1
func Mount(engine *gin.Engine, h Handlers) []*DomainGroup {
	engine.GET("/health/live", h.System.Live)
	engine.GET("/health/ready", h.System.Ready)

	groups := []*DomainGroup{
		systemRoutes(h.System),
		treasuryRoutes(h),
		documentRoutes(h),
		countingRoutes(h),
		fiscalRoutes(h.Fiscal),
	}
	MountAPI(engine, "v1", groups...)
	return groups
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("/system").
		GET("/info", h.GetSystemInfo)
}

func treasuryRoutes(hs Handlers) *DomainGroup {
	h := hs.Treasury
	g := NewDomainGroup("/treasury")
	g.POST("/allocations/preview", h.PreviewAllocation).
		POST("/payments/:id/allocate", hs.idempotent(h.ApplyAllocation)...).
		GET("/tolerance/:companyId", h.GetToleranceSettings).
		POST("/tolerance/check", h.CheckTolerance)
	return g
}

func documentRoutes(hs Handlers) *DomainGroup {
	h := hs.Document
	return NewDomainGroup("/documents").
		POST("/:id/confirm", h.Confirm).
		POST("/:id/post", hs.idempotent(h.Post)...).
		POST("/:id/cancel", h.Cancel).
		DELETE("/:id", h.Delete)
}

func countingRoutes(hs Handlers) *DomainGroup {
	h := hs.Counting
	inventory := NewDomainGroup("/inventory")
	inventory.Group("/countings").
		POST("", hs.idempotent(h.Create)...).
		GET("/:id", h.Get).
		POST("/:id/start", h.Start).
		POST("/:id/close-round", h.CloseRound).
		POST("/:id/third-count", h.RequestThirdCount).
		POST("/:id/cancel", h.Cancel).
		POST("/:id/reconcile", h.Reconcile).
		POST("/:id/finalize", h.Finalize).
		POST("/:id/items/:itemId/counts", h.SubmitCount).
		POST("/:id/items/:itemId/override", h.Override)
	return inventory
}

func fiscalRoutes(h *handler.FiscalHandler) *DomainGroup {
	return NewDomainGroup("/fiscal").
		GET("/chains/:companyId/:chainType/verify", h.VerifyChain).
		GET("/documents/:id/verify", h.VerifyDocument)
}
