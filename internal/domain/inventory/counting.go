package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CountingStatus represents the status of an inventory counting
type CountingStatus string

const (
	CountingStatusDraft            CountingStatus = "draft"
	CountingStatusCount1InProgress CountingStatus = "count_1_in_progress"
	CountingStatusCount2InProgress CountingStatus = "count_2_in_progress"
	CountingStatusCount3InProgress CountingStatus = "count_3_in_progress"
	CountingStatusPendingReview    CountingStatus = "pending_review"
	CountingStatusFinalized        CountingStatus = "finalized"
	CountingStatusCancelled        CountingStatus = "cancelled"
)

// IsValid checks if the status is a valid CountingStatus
func (s CountingStatus) IsValid() bool {
	switch s {
	case CountingStatusDraft, CountingStatusCount1InProgress, CountingStatusCount2InProgress,
		CountingStatusCount3InProgress, CountingStatusPendingReview, CountingStatusFinalized,
		CountingStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of CountingStatus
func (s CountingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s CountingStatus) IsTerminal() bool {
	return s == CountingStatusFinalized || s == CountingStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s CountingStatus) CanTransitionTo(target CountingStatus) bool {
	if target == CountingStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case CountingStatusDraft:
		return target == CountingStatusCount1InProgress
	case CountingStatusCount1InProgress:
		return target == CountingStatusCount2InProgress || target == CountingStatusCount3InProgress ||
			target == CountingStatusPendingReview
	case CountingStatusCount2InProgress:
		return target == CountingStatusCount3InProgress || target == CountingStatusPendingReview
	case CountingStatusCount3InProgress:
		return target == CountingStatusPendingReview
	case CountingStatusPendingReview:
		return target == CountingStatusFinalized || target == CountingStatusCount3InProgress
	case CountingStatusFinalized, CountingStatusCancelled:
		return false
	}
	return false
}

// ExecutionMode says whether counters work one after another or at the same time
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// IsValid checks if the mode is known
func (m ExecutionMode) IsValid() bool {
	return m == ExecutionModeSequential || m == ExecutionModeParallel
}

// InventoryCounting is a physical inventory count over a scope of products/locations
type InventoryCounting struct {
	shared.CompanyAggregateRoot
	Number         string
	Scope          string
	ExecutionMode  ExecutionMode
	Status         CountingStatus
	RequiresCount2 bool
	RequiresCount3 bool
	StartedAt      *time.Time
	FinalizedAt    *time.Time
	CancelledAt    *time.Time
}

// NewInventoryCounting creates a draft counting
func NewInventoryCounting(companyID uuid.UUID, number, scope string, mode ExecutionMode, requiresCount2, requiresCount3 bool) (*InventoryCounting, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "Counting number cannot be empty")
	}
	if !mode.IsValid() {
		return nil, shared.NewValidationError("INVALID_EXECUTION_MODE", "Unknown execution mode: "+string(mode))
	}
	if requiresCount3 && !requiresCount2 {
		return nil, shared.NewValidationError("INVALID_COUNT_PLAN", "A third count requires a second count")
	}
	return &InventoryCounting{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               strings.TrimSpace(number),
		Scope:                scope,
		ExecutionMode:        mode,
		Status:               CountingStatusDraft,
		RequiresCount2:       requiresCount2,
		RequiresCount3:       requiresCount3,
	}, nil
}

func (c *InventoryCounting) transition(target CountingStatus) error {
	if !c.Status.CanTransitionTo(target) {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Cannot move counting from %s to %s", c.Status, target))
	}
	c.Status = target
	c.Touch()
	return nil
}

// Start opens the first counting round
func (c *InventoryCounting) Start() error {
	if err := c.transition(CountingStatusCount1InProgress); err != nil {
		return err
	}
	now := time.Now()
	c.StartedAt = &now
	return nil
}

// AcceptsCount reports whether count n may be submitted in the current status.
// In parallel mode the first two counts run at the same time.
func (c *InventoryCounting) AcceptsCount(n int) bool {
	switch c.Status {
	case CountingStatusCount1InProgress:
		return n == 1 || (n == 2 && c.RequiresCount2 && c.ExecutionMode == ExecutionModeParallel)
	case CountingStatusCount2InProgress:
		return n == 2
	case CountingStatusCount3InProgress:
		return n == 3
	default:
		return false
	}
}

// Advance closes the current round and opens the next one, or moves to review
func (c *InventoryCounting) Advance() error {
	switch c.Status {
	case CountingStatusCount1InProgress:
		if c.RequiresCount2 && c.ExecutionMode == ExecutionModeSequential {
			return c.transition(CountingStatusCount2InProgress)
		}
		// Parallel mode collected counts 1 and 2 in the same round.
		if c.RequiresCount3 {
			return c.transition(CountingStatusCount3InProgress)
		}
		return c.transition(CountingStatusPendingReview)
	case CountingStatusCount2InProgress:
		if c.RequiresCount3 {
			return c.transition(CountingStatusCount3InProgress)
		}
		return c.transition(CountingStatusPendingReview)
	case CountingStatusCount3InProgress:
		return c.transition(CountingStatusPendingReview)
	default:
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("No counting round to close in %s status", c.Status))
	}
}

// HasThirdCount reports whether a third round is or will be part of this counting
func (c *InventoryCounting) HasThirdCount() bool {
	return c.RequiresCount3 || c.Status == CountingStatusCount3InProgress
}

// RequestThirdCount opens a third round after review found disagreements
func (c *InventoryCounting) RequestThirdCount() error {
	if !c.RequiresCount2 {
		return shared.NewInvariantError("INVALID_COUNT_PLAN", "A third count requires a second count")
	}
	if err := c.transition(CountingStatusCount3InProgress); err != nil {
		return err
	}
	c.RequiresCount3 = true
	return nil
}

// EnsureReviewable rejects reconciliation or override outside review
func (c *InventoryCounting) EnsureReviewable() error {
	if c.Status != CountingStatusPendingReview {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Counting must be pending review, is %s", c.Status))
	}
	return nil
}

// Finalize closes the counting; every item must be resolved
func (c *InventoryCounting) Finalize(items []*CountingItem) error {
	if err := c.EnsureReviewable(); err != nil {
		return err
	}
	pending := 0
	for _, item := range items {
		if !item.IsResolved() {
			pending++
		}
	}
	if pending > 0 {
		return shared.NewInvariantError("UNRESOLVED_ITEMS", fmt.Sprintf("%d items are not resolved", pending))
	}
	if err := c.transition(CountingStatusFinalized); err != nil {
		return err
	}
	now := time.Now()
	c.FinalizedAt = &now
	c.AddDomainEvent(NewCountingFinalizedEvent(c, len(items)))
	return nil
}

// Cancel abandons a counting that is not finalized
func (c *InventoryCounting) Cancel() error {
	if err := c.transition(CountingStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	c.CancelledAt = &now
	return nil
}
