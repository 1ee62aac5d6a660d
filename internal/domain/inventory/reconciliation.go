package inventory

import (
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Variance severity thresholds as fractions of the theoretical quantity
var (
	CriticalVarianceThreshold    = decimal.RequireFromString("0.10")
	SignificantVarianceThreshold = decimal.RequireFromString("0.05")
)

// ClassifyVariance labels how far count is from theoretical:
// >=10% critical, [5%,10%) significant, (0,5%) minor, none when equal.
// Any difference against a theoretical quantity of zero is critical.
func ClassifyVariance(count, theoretical valueobject.Quantity) FlagReason {
	diff := count.Sub(theoretical).Abs()
	if diff.IsZero() {
		return FlagNone
	}
	if theoretical.IsZero() {
		return FlagCriticalVariance
	}
	pct := diff.Decimal().Div(theoretical.Decimal().Abs())
	switch {
	case pct.GreaterThanOrEqual(CriticalVarianceThreshold):
		return FlagCriticalVariance
	case pct.GreaterThanOrEqual(SignificantVarianceThreshold):
		return FlagSignificantVariance
	default:
		return FlagMinorVariance
	}
}

// ReconcileOutcome reports what ReconcileItem did
type ReconcileOutcome struct {
	// Changed is false when the item was skipped.
	Changed bool
	// AwaitingThirdCount is set when two counts disagree and a third count is planned.
	AwaitingThirdCount bool
}

// ReconcileItem derives the final quantity of a pending item from its counts.
// Resolved items, including manual overrides, are never touched.
//
//   - one count: equal to theoretical is an all-match; otherwise the count is
//     accepted and flagged with its variance severity.
//   - two counts: agreement resolves (flagged variance_from_theoretical when it
//     differs from theoretical); disagreement stays pending.
//   - three counts: a two-of-three majority is decisive and the dissenting
//     counter is flagged; no majority stays pending as no_consensus.
func ReconcileItem(item *CountingItem, hasThirdCount bool) ReconcileOutcome {
	if item.ResolutionMethod != ResolutionPending {
		return ReconcileOutcome{}
	}

	counts := item.Counts()
	theoretical := item.TheoreticalQty

	switch len(counts) {
	case 0:
		return ReconcileOutcome{}

	case 1:
		c1 := counts[0]
		if c1.Equal(theoretical) {
			item.resolve(c1, ResolutionAutoAllMatch, FlagNone)
		} else {
			item.resolve(c1, ResolutionAutoCountersAgree, ClassifyVariance(c1, theoretical))
		}
		return ReconcileOutcome{Changed: true}

	case 2:
		c1, c2 := counts[0], counts[1]
		if !c1.Equal(c2) {
			item.hold(FlagCounterDisagreement)
			return ReconcileOutcome{Changed: true, AwaitingThirdCount: hasThirdCount}
		}
		resolveAgreed(item, c1)
		return ReconcileOutcome{Changed: true}

	default:
		c1, c2, c3 := counts[0], counts[1], counts[2]
		switch {
		case c1.Equal(c2) && c2.Equal(c3):
			resolveAgreed(item, c1)
		case c1.Equal(c2):
			item.resolve(c1, ResolutionThirdCountDecisive, DissentingCounter(3))
		case c1.Equal(c3):
			item.resolve(c1, ResolutionThirdCountDecisive, DissentingCounter(2))
		case c2.Equal(c3):
			item.resolve(c2, ResolutionThirdCountDecisive, DissentingCounter(1))
		default:
			item.hold(FlagNoConsensus)
		}
		return ReconcileOutcome{Changed: true}
	}
}

func resolveAgreed(item *CountingItem, agreed valueobject.Quantity) {
	if agreed.Equal(item.TheoreticalQty) {
		item.resolve(agreed, ResolutionAutoAllMatch, FlagNone)
		return
	}
	item.resolve(agreed, ResolutionAutoCountersAgree, FlagVarianceFromTheoretical)
}
