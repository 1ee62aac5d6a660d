// Package inventory runs physical inventory countings: count submission,
// reconciliation of pending items, reviewer overrides and finalization.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garage-erp/backend/internal/application/transaction"
	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
)

// DefaultReconcileWorkers bounds parallel item reconciliation when no value is configured
const DefaultReconcileWorkers = 8

// CountingService coordinates countings and their items
type CountingService struct {
	scope   transaction.Scope
	workers int
	metrics *telemetry.CoreMetrics
	logger  *zap.Logger
}

// NewCountingService creates a CountingService. workers caps the number of
// items reconciled at the same time.
func NewCountingService(scope transaction.Scope, workers int, metrics *telemetry.CoreMetrics, logger *zap.Logger) *CountingService {
	if workers <= 0 {
		workers = DefaultReconcileWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountingService{scope: scope, workers: workers, metrics: metrics, logger: logger}
}

// CountingItemSpec describes one line of a new counting
type CountingItemSpec struct {
	ProductID      uuid.UUID
	LocationID     uuid.UUID
	TheoreticalQty valueobject.Quantity
}

// CreateCountingRequest opens a new counting
type CreateCountingRequest struct {
	CompanyID      uuid.UUID
	Number         string
	Scope          string
	ExecutionMode  inventory.ExecutionMode
	RequiresCount2 bool
	RequiresCount3 bool
	Items          []CountingItemSpec
}

// SubmitCountRequest records one count of one item
type SubmitCountRequest struct {
	CompanyID   uuid.UUID
	CountingID  uuid.UUID
	ItemID      uuid.UUID
	CountNumber int
	Quantity    valueobject.Quantity
}

// OverrideItemRequest carries a reviewer decision for one item
type OverrideItemRequest struct {
	CompanyID  uuid.UUID
	CountingID uuid.UUID
	ItemID     uuid.UUID
	Quantity   valueobject.Quantity
	Note       string
	By         uuid.UUID
}

// CountingResult is a counting with its items
type CountingResult struct {
	Counting *inventory.InventoryCounting
	Items    []*inventory.CountingItem
}

// ReconcileResult summarizes a reconciliation run
type ReconcileResult struct {
	CountingID         uuid.UUID                 `json:"counting_id"`
	Resolved           int                       `json:"resolved"`
	Flagged            int                       `json:"flagged"`
	Pending            int                       `json:"pending"`
	AwaitingThirdCount int                       `json:"awaiting_third_count"`
	Skipped            int                       `json:"skipped"`
	Items              []*inventory.CountingItem `json:"-"`
}

// CreateCounting creates a draft counting and its items
func (s *CountingService) CreateCounting(ctx context.Context, req CreateCountingRequest) (*CountingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)

	counting, err := inventory.NewInventoryCounting(req.CompanyID, req.Number, req.Scope,
		req.ExecutionMode, req.RequiresCount2, req.RequiresCount3)
	if err != nil {
		return nil, err
	}
	items := make([]*inventory.CountingItem, 0, len(req.Items))
	for _, spec := range req.Items {
		item, err := inventory.NewCountingItem(counting, spec.ProductID, spec.LocationID, spec.TheoreticalQty)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if err := repos.Countings().Save(ctx, counting); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return repos.Countings().CreateItems(ctx, items)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Counting created",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("counting_id", counting.ID.String()),
		zap.Int("items", len(items)),
	)
	return &CountingResult{Counting: counting, Items: items}, nil
}

// GetCounting loads a counting with its items
func (s *CountingService) GetCounting(ctx context.Context, companyID, countingID uuid.UUID) (*CountingResult, error) {
	var result *CountingResult
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		counting, err := repos.Countings().FindByID(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		items, err := repos.Countings().FindItems(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		result = &CountingResult{Counting: counting, Items: items}
		return nil
	})
	return result, err
}

// Start opens the first counting round
func (s *CountingService) Start(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return s.transition(ctx, "start", companyID, countingID, (*inventory.InventoryCounting).Start)
}

// CloseRound closes the current counting round
func (s *CountingService) CloseRound(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return s.transition(ctx, "close_round", companyID, countingID, (*inventory.InventoryCounting).Advance)
}

// RequestThirdCount reopens counting for a third round after review
func (s *CountingService) RequestThirdCount(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return s.transition(ctx, "request_third_count", companyID, countingID, (*inventory.InventoryCounting).RequestThirdCount)
}

// Cancel abandons a counting
func (s *CountingService) Cancel(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return s.transition(ctx, "cancel", companyID, countingID, (*inventory.InventoryCounting).Cancel)
}

func (s *CountingService) transition(
	ctx context.Context,
	op string,
	companyID, countingID uuid.UUID,
	apply func(c *inventory.InventoryCounting) error,
) (*inventory.InventoryCounting, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCountingID, countingID.String(),
	)

	var counting *inventory.InventoryCounting
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		c, err := repos.Countings().FindByID(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := repos.Countings().Save(ctx, c); err != nil {
			return err
		}
		counting = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("Counting transitioned",
		zap.String("operation", op),
		zap.String("counting_id", countingID.String()),
		zap.String("status", counting.Status.String()),
	)
	return counting, nil
}

// SubmitCount records count n for one item. The counting round must accept
// that count number.
func (s *CountingService) SubmitCount(ctx context.Context, req SubmitCountRequest) (*inventory.CountingItem, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", "submit_count")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrCountingID, req.CountingID.String(),
		telemetry.SpanAttrItemID, req.ItemID.String(),
	)

	var item *inventory.CountingItem
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		counting, err := repos.Countings().FindByID(ctx, req.CompanyID, req.CountingID)
		if err != nil {
			return err
		}
		if !counting.AcceptsCount(req.CountNumber) {
			return shared.NewInvariantError("COUNT_NOT_OPEN",
				fmt.Sprintf("Count %d is not open while counting is %s", req.CountNumber, counting.Status))
		}
		it, err := repos.Countings().FindItem(ctx, req.CompanyID, req.CountingID, req.ItemID)
		if err != nil {
			return err
		}
		if err := it.RecordCount(req.CountNumber, req.Quantity); err != nil {
			return err
		}
		if err := repos.Countings().SaveItem(ctx, it); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return item, nil
}

// ReconcileCounting reconciles every pending item of a counting under review.
// Items are independent so they are processed in parallel, each in its own
// transaction with an optimistic version check. Resolved items are skipped,
// which makes a rerun after a partial failure safe.
func (s *CountingService) ReconcileCounting(ctx context.Context, companyID, countingID uuid.UUID) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", "reconcile")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCountingID, countingID.String(),
	)
	start := time.Now()

	var (
		counting *inventory.InventoryCounting
		items    []*inventory.CountingItem
	)
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		c, err := repos.Countings().FindByID(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		if err := c.EnsureReviewable(); err != nil {
			return err
		}
		counting = c
		items, err = repos.Countings().FindItems(ctx, companyID, countingID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrItemCount, len(items))

	hasThird := counting.HasThirdCount()
	result := &ReconcileResult{CountingID: countingID, Items: make([]*inventory.CountingItem, len(items))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, item := range items {
		if item.IsResolved() {
			result.Items[i] = item
			mu.Lock()
			result.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			reconciled, outcome, err := s.reconcileItem(gctx, companyID, countingID, item.ID, hasThird)
			if err != nil {
				return fmt.Errorf("reconcile item %s: %w", item.ID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			result.Items[i] = reconciled
			if !outcome.Changed {
				result.Skipped++
			}
			if outcome.AwaitingThirdCount {
				result.AwaitingThirdCount++
			}
			return nil
		})
	}
	err = g.Wait()
	s.metrics.RecordOperation(ctx, "counting.reconcile", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Counting reconciliation failed",
			zap.String("counting_id", countingID.String()),
			zap.Bool("retryable", shared.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	for _, item := range result.Items {
		if item.IsResolved() {
			result.Resolved++
		} else {
			result.Pending++
		}
		if item.IsFlagged {
			result.Flagged++
			s.metrics.RecordFlaggedItem(ctx, string(item.FlagReason))
			telemetry.AddEvent(span, "item_flagged",
				telemetry.SpanAttrItemID, item.ID.String(),
				"reason", string(item.FlagReason),
			)
		}
	}

	s.logger.Info("Counting reconciled",
		zap.String("company_id", companyID.String()),
		zap.String("counting_id", countingID.String()),
		zap.Int("resolved", result.Resolved),
		zap.Int("pending", result.Pending),
		zap.Int("flagged", result.Flagged),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *CountingService) reconcileItem(
	ctx context.Context,
	companyID, countingID, itemID uuid.UUID,
	hasThird bool,
) (*inventory.CountingItem, inventory.ReconcileOutcome, error) {
	var (
		item    *inventory.CountingItem
		outcome inventory.ReconcileOutcome
	)
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		it, err := repos.Countings().FindItem(ctx, companyID, countingID, itemID)
		if err != nil {
			return err
		}
		outcome = inventory.ReconcileItem(it, hasThird)
		if outcome.Changed {
			if err := repos.Countings().SaveItem(ctx, it); err != nil {
				return err
			}
		}
		item = it
		return nil
	})
	return item, outcome, err
}

// OverrideItem sets the final quantity of an item from a reviewer decision
func (s *CountingService) OverrideItem(ctx context.Context, req OverrideItemRequest) (*inventory.CountingItem, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", "override_item")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrCountingID, req.CountingID.String(),
		telemetry.SpanAttrItemID, req.ItemID.String(),
	)

	var item *inventory.CountingItem
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		counting, err := repos.Countings().FindByID(ctx, req.CompanyID, req.CountingID)
		if err != nil {
			return err
		}
		if err := counting.EnsureReviewable(); err != nil {
			return err
		}
		it, err := repos.Countings().FindItem(ctx, req.CompanyID, req.CountingID, req.ItemID)
		if err != nil {
			return err
		}
		if err := it.ManualOverride(req.Quantity, req.Note, req.By); err != nil {
			return err
		}
		if err := repos.Countings().SaveItem(ctx, it); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Counting item overridden",
		zap.String("counting_id", req.CountingID.String()),
		zap.String("item_id", req.ItemID.String()),
		zap.String("final_qty", item.FinalQty.String()),
		zap.String("by", req.By.String()),
	)
	return item, nil
}

// Finalize closes a counting once every item is resolved
func (s *CountingService) Finalize(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "counting", "finalize")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCountingID, countingID.String(),
	)

	var counting *inventory.InventoryCounting
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		c, err := repos.Countings().FindByID(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		items, err := repos.Countings().FindItems(ctx, companyID, countingID)
		if err != nil {
			return err
		}
		if err := c.Finalize(items); err != nil {
			return err
		}
		if err := repos.Countings().Save(ctx, c); err != nil {
			return err
		}
		if err := repos.Events().Append(ctx, c.GetDomainEvents()...); err != nil {
			return err
		}
		c.ClearDomainEvents()
		counting = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Counting finalized",
		zap.String("company_id", companyID.String()),
		zap.String("counting_id", countingID.String()),
	)
	return counting, nil
}
