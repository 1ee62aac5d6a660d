package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// MaxCounts is the number of independent counts an item can receive
const MaxCounts = 3

// ResolutionMethod records how an item's final quantity was decided
type ResolutionMethod string

const (
	ResolutionPending            ResolutionMethod = "pending"
	ResolutionAutoAllMatch       ResolutionMethod = "auto_all_match"
	ResolutionAutoCountersAgree  ResolutionMethod = "auto_counters_agree"
	ResolutionThirdCountDecisive ResolutionMethod = "third_count_decisive"
	ResolutionManualOverride     ResolutionMethod = "manual_override"
)

// IsValid checks if the method is known
func (m ResolutionMethod) IsValid() bool {
	switch m {
	case ResolutionPending, ResolutionAutoAllMatch, ResolutionAutoCountersAgree,
		ResolutionThirdCountDecisive, ResolutionManualOverride:
		return true
	}
	return false
}

// FlagReason explains why an item needs attention
type FlagReason string

const (
	FlagNone                    FlagReason = ""
	FlagVarianceFromTheoretical FlagReason = "variance_from_theoretical"
	FlagCounterDisagreement     FlagReason = "counter_disagreement"
	FlagNoConsensus             FlagReason = "no_consensus"
	FlagCriticalVariance        FlagReason = "critical_variance"
	FlagSignificantVariance     FlagReason = "significant_variance"
	FlagMinorVariance           FlagReason = "minor_variance"
)

// DissentingCounter names the counter that disagreed with the majority
func DissentingCounter(n int) FlagReason {
	return FlagReason(fmt.Sprintf("counter_%d", n))
}

// CountingItem is one product/location line of a counting
type CountingItem struct {
	ID             uuid.UUID
	CountingID     uuid.UUID
	CompanyID      uuid.UUID
	ProductID      uuid.UUID
	LocationID     uuid.UUID
	TheoreticalQty valueobject.Quantity

	// Counts in submission order; nil until submitted.
	Count1 *valueobject.Quantity
	Count2 *valueobject.Quantity
	Count3 *valueobject.Quantity

	FinalQty         *valueobject.Quantity
	ResolutionMethod ResolutionMethod
	IsFlagged        bool
	FlagReason       FlagReason
	OverrideNote     string
	OverriddenBy     *uuid.UUID
	ResolvedAt       *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewCountingItem creates an unresolved item
func NewCountingItem(counting *InventoryCounting, productID, locationID uuid.UUID, theoretical valueobject.Quantity) (*CountingItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if theoretical.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Theoretical quantity cannot be negative")
	}
	now := time.Now()
	return &CountingItem{
		ID:               shared.NewID(),
		CountingID:       counting.ID,
		CompanyID:        counting.CompanyID,
		ProductID:        productID,
		LocationID:       locationID,
		TheoreticalQty:   theoretical,
		ResolutionMethod: ResolutionPending,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsResolved reports whether a final quantity was decided
func (i *CountingItem) IsResolved() bool {
	return i.ResolutionMethod != ResolutionPending && i.FinalQty != nil
}

// Counts returns the submitted counts in order
func (i *CountingItem) Counts() []valueobject.Quantity {
	counts := make([]valueobject.Quantity, 0, MaxCounts)
	for _, c := range []*valueobject.Quantity{i.Count1, i.Count2, i.Count3} {
		if c == nil {
			break
		}
		counts = append(counts, *c)
	}
	return counts
}

func (i *CountingItem) slot(n int) **valueobject.Quantity {
	switch n {
	case 1:
		return &i.Count1
	case 2:
		return &i.Count2
	case 3:
		return &i.Count3
	}
	return nil
}

// RecordCount stores count n. Counts are submitted in order and a resolved
// item accepts no further counts.
func (i *CountingItem) RecordCount(n int, qty valueobject.Quantity) error {
	slot := i.slot(n)
	if slot == nil {
		return shared.NewValidationError("INVALID_COUNT_NUMBER", fmt.Sprintf("Count number must be between 1 and %d", MaxCounts))
	}
	if qty.IsNegative() {
		return shared.NewValidationError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	if i.IsResolved() {
		return shared.NewInvariantError("ITEM_RESOLVED", "Item is already resolved; use a manual override")
	}
	if *slot != nil {
		return shared.NewInvariantError("COUNT_ALREADY_RECORDED", fmt.Sprintf("Count %d was already recorded", n))
	}
	if n > 1 && *i.slot(n-1) == nil {
		return shared.NewInvariantError("COUNT_OUT_OF_ORDER", fmt.Sprintf("Count %d requires count %d first", n, n-1))
	}
	q := qty
	*slot = &q
	i.UpdatedAt = time.Now()
	return nil
}

// ManualOverride sets the final quantity from a reviewer decision.
// It is the only way to change a resolved item.
func (i *CountingItem) ManualOverride(qty valueobject.Quantity, note string, by uuid.UUID) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return shared.NewValidationError("OVERRIDE_NOTE_REQUIRED", "A justification note is required for manual override")
	}
	if qty.IsNegative() {
		return shared.NewValidationError("INVALID_QUANTITY", "Final quantity cannot be negative")
	}
	q := qty
	now := time.Now()
	i.FinalQty = &q
	i.ResolutionMethod = ResolutionManualOverride
	i.IsFlagged = false
	i.OverrideNote = note
	if by != uuid.Nil {
		i.OverriddenBy = &by
	}
	i.ResolvedAt = &now
	i.UpdatedAt = now
	return nil
}

// Variance is final minus theoretical; nil until resolved
func (i *CountingItem) Variance() *valueobject.Quantity {
	if i.FinalQty == nil {
		return nil
	}
	v := i.FinalQty.Sub(i.TheoreticalQty)
	return &v
}

func (i *CountingItem) resolve(final valueobject.Quantity, method ResolutionMethod, flag FlagReason) {
	now := time.Now()
	i.FinalQty = &final
	i.ResolutionMethod = method
	i.IsFlagged = flag != FlagNone
	i.FlagReason = flag
	i.ResolvedAt = &now
	i.UpdatedAt = now
}

func (i *CountingItem) hold(flag FlagReason) {
	i.FinalQty = nil
	i.ResolutionMethod = ResolutionPending
	i.IsFlagged = true
	i.FlagReason = flag
	i.UpdatedAt = time.Now()
}
