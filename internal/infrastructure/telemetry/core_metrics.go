package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when CoreMetrics is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// CoreMetrics records counters for the posting, allocation, counting and
// locking paths. A nil *CoreMetrics is valid and records nothing.
type CoreMetrics struct {
	fiscalEntries     *Counter
	allocations       *Counter
	writeoffs         *Counter
	creditBalances    *Counter
	flaggedItems      *Counter
	chainVerification *Counter
	lockWait          *Histogram
	operation         *Histogram
}

// NewCoreMetrics registers the instruments on meter.
func NewCoreMetrics(meter metric.Meter) (*CoreMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &CoreMetrics{}
	var err error

	if m.fiscalEntries, err = NewCounter(meter, "erp_fiscal_entries_appended_total",
		"Fiscal chain entries appended", "{entry}"); err != nil {
		return nil, err
	}
	if m.allocations, err = NewCounter(meter, "erp_payment_allocations_total",
		"Payment allocations applied", "{allocation}"); err != nil {
		return nil, err
	}
	if m.writeoffs, err = NewCounter(meter, "erp_tolerance_writeoffs_total",
		"Allocation lines settled with a tolerance write-off", "{line}"); err != nil {
		return nil, err
	}
	if m.creditBalances, err = NewCounter(meter, "erp_credit_balances_total",
		"Allocations leaving an excess as partner credit", "{allocation}"); err != nil {
		return nil, err
	}
	if m.flaggedItems, err = NewCounter(meter, "erp_counting_items_flagged_total",
		"Counting items flagged for review", "{item}"); err != nil {
		return nil, err
	}
	if m.chainVerification, err = NewCounter(meter, "erp_chain_verifications_total",
		"Fiscal chain verification runs", "{run}"); err != nil {
		return nil, err
	}
	if m.lockWait, err = NewHistogram(meter, HistogramOpts{
		Name:        "erp_lock_wait_seconds",
		Description: "Time spent acquiring exclusive locks",
		Unit:        "s",
		Boundaries:  LockWaitBuckets,
	}); err != nil {
		return nil, err
	}
	if m.operation, err = NewHistogram(meter, HistogramOpts{
		Name:        "erp_operation_duration_seconds",
		Description: "Duration of posting and allocation operations",
		Unit:        "s",
		Boundaries:  OperationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordFiscalEntry counts one appended chain entry.
func (m *CoreMetrics) RecordFiscalEntry(ctx context.Context, chainType string) {
	if m == nil {
		return
	}
	m.fiscalEntries.Inc(ctx, AttrChainType.String(chainType))
}

// RecordAllocation counts an applied allocation and its tolerance outcome.
func (m *CoreMetrics) RecordAllocation(ctx context.Context, method string, writeoffLines int, creditBalance bool) {
	if m == nil {
		return
	}
	m.allocations.Inc(ctx, AttrMethod.String(method))
	if writeoffLines > 0 {
		m.writeoffs.Add(ctx, int64(writeoffLines), AttrMethod.String(method))
	}
	if creditBalance {
		m.creditBalances.Inc(ctx, AttrMethod.String(method))
	}
}

// RecordFlaggedItem counts an item flagged during reconciliation.
func (m *CoreMetrics) RecordFlaggedItem(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.flaggedItems.Inc(ctx, AttrReason.String(reason))
}

// RecordChainVerification counts a verification run by outcome.
func (m *CoreMetrics) RecordChainVerification(ctx context.Context, chainType string, valid bool) {
	if m == nil {
		return
	}
	outcome := "valid"
	if !valid {
		outcome = "broken"
	}
	m.chainVerification.Inc(ctx, AttrChainType.String(chainType), AttrOutcome.String(outcome))
}

// RecordLockWait records how long a lock acquisition took.
func (m *CoreMetrics) RecordLockWait(ctx context.Context, backend string, d time.Duration, acquired bool) {
	if m == nil {
		return
	}
	outcome := "acquired"
	if !acquired {
		outcome = "timeout"
	}
	m.lockWait.RecordDuration(ctx, d, AttrBackend.String(backend), AttrOutcome.String(outcome))
}

// RecordOperation records the duration of a named operation.
func (m *CoreMetrics) RecordOperation(ctx context.Context, name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operation.RecordDuration(ctx, d, AttrOperation.String(name), AttrOutcome.String(outcome))
}
