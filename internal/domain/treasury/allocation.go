package treasury

import (
	"sort"
	"strings"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/strategy"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationMethod selects the order in which open invoices receive money
type AllocationMethod string

const (
	AllocationMethodFIFO            AllocationMethod = "fifo"
	AllocationMethodDueDatePriority AllocationMethod = "due_date_priority"
)

// IsValid checks if the method is known
func (m AllocationMethod) IsValid() bool {
	switch m {
	case AllocationMethodFIFO, AllocationMethodDueDatePriority:
		return true
	}
	return false
}

// String returns the string representation
func (m AllocationMethod) String() string {
	return string(m)
}

// ParseAllocationMethod accepts the method in any case; empty means FIFO
func ParseAllocationMethod(s string) (AllocationMethod, error) {
	if strings.TrimSpace(s) == "" {
		return AllocationMethodFIFO, nil
	}
	m := AllocationMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.NewValidationError("INVALID_ALLOCATION_METHOD", "Unknown allocation method: "+s)
	}
	return m, nil
}

// ExcessHandling says what happens to money left after all invoices are settled
type ExcessHandling string

const (
	ExcessHandlingNone              ExcessHandling = ""
	ExcessHandlingToleranceWriteoff ExcessHandling = "tolerance_writeoff"
	ExcessHandlingCreditBalance     ExcessHandling = "credit_balance"
)

// OpenInvoice is a posted invoice with an outstanding balance
type OpenInvoice struct {
	ID           uuid.UUID
	Number       string
	DocumentDate time.Time
	DueDate      *time.Time
	BalanceDue   decimal.Decimal
}

// AllocationOrdering orders open invoices for allocation
type AllocationOrdering interface {
	strategy.Strategy
	Method() AllocationMethod
	Order(invoices []OpenInvoice) []OpenInvoice
}

var orderings = strategy.NewRegistry[AllocationMethod, AllocationOrdering]().
	MustRegister(AllocationMethodFIFO, NewFIFOOrdering()).
	MustRegister(AllocationMethodDueDatePriority, NewDueDatePriorityOrdering())

// FIFOOrdering allocates to the oldest document first
type FIFOOrdering struct {
	strategy.Descriptor
}

// NewFIFOOrdering creates the FIFO ordering
func NewFIFOOrdering() *FIFOOrdering {
	return &FIFOOrdering{
		Descriptor: strategy.Describe("fifo_allocation",
			"Allocates to the oldest invoice first by document date, then id"),
	}
}

// Method returns AllocationMethodFIFO
func (s *FIFOOrdering) Method() AllocationMethod {
	return AllocationMethodFIFO
}

// Order sorts by document_date ascending, then id
func (s *FIFOOrdering) Order(invoices []OpenInvoice) []OpenInvoice {
	sorted := make([]OpenInvoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DocumentDate.Equal(b.DocumentDate) {
			return a.DocumentDate.Before(b.DocumentDate)
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted
}

// DueDatePriorityOrdering allocates to the invoice due soonest first
type DueDatePriorityOrdering struct {
	strategy.Descriptor
}

// NewDueDatePriorityOrdering creates the due-date ordering
func NewDueDatePriorityOrdering() *DueDatePriorityOrdering {
	return &DueDatePriorityOrdering{
		Descriptor: strategy.Describe("due_date_priority_allocation",
			"Allocates to the invoice due soonest first, then by document date"),
	}
}

// Method returns AllocationMethodDueDatePriority
func (s *DueDatePriorityOrdering) Method() AllocationMethod {
	return AllocationMethodDueDatePriority
}

// Order sorts by due_date ascending (undated last), then document_date, then id
func (s *DueDatePriorityOrdering) Order(invoices []OpenInvoice) []OpenInvoice {
	sorted := make([]OpenInvoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			if !a.DueDate.Equal(*b.DueDate) {
				return a.DueDate.Before(*b.DueDate)
			}
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		}
		if !a.DocumentDate.Equal(b.DocumentDate) {
			return a.DocumentDate.Before(b.DocumentDate)
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted
}

// OrderingFor returns the ordering for method
func OrderingFor(method AllocationMethod) (AllocationOrdering, error) {
	ordering, ok := orderings.Get(method)
	if !ok {
		return nil, shared.NewValidationError("INVALID_ALLOCATION_METHOD", "Unknown allocation method: "+string(method))
	}
	return ordering, nil
}

// AllocationLine is the planned assignment of money to one invoice
type AllocationLine struct {
	DocumentID        uuid.UUID
	DocumentNumber    string
	BalanceBefore     decimal.Decimal
	Amount            decimal.Decimal
	ToleranceWriteoff decimal.Decimal
	WriteoffType      ToleranceType
	BalanceAfter      decimal.Decimal
	FullySettled      bool
}

// InvoiceReduction is how much the invoice balance drops when the line is
// applied: the allocated amount plus any shortfall written off.
func (l AllocationLine) InvoiceReduction() decimal.Decimal {
	if l.WriteoffType == ToleranceTypeUnderpayment {
		return l.Amount.Add(l.ToleranceWriteoff)
	}
	return l.Amount
}

// AllocationPlan is the full outcome of allocating one payment
type AllocationPlan struct {
	Method             AllocationMethod
	PaymentAmount      decimal.Decimal
	Lines              []AllocationLine
	TotalToInvoices    decimal.Decimal
	ToleranceWriteoffs decimal.Decimal
	ExcessAmount       decimal.Decimal
	ExcessHandling     ExcessHandling
	CreditBalance      decimal.Decimal
	Tolerance          ToleranceSettings
}

// OverpaymentWrittenOff returns the part of the payment discarded as tolerance
func (p *AllocationPlan) OverpaymentWrittenOff() decimal.Decimal {
	if p.ExcessHandling == ExcessHandlingToleranceWriteoff {
		return p.ExcessAmount
	}
	return decimal.Zero
}

// PlanAllocation walks the ordered open invoices and assigns
// min(remaining, balance_due) to each until the payment is used up.
//
// A shortfall on the invoice where the payment runs out is written off when it
// is within tolerance of that invoice's balance. Money left after every
// invoice is settled is written off when within tolerance against the last
// touched invoice, otherwise it becomes a credit balance.
func PlanAllocation(paymentAmount decimal.Decimal, invoices []OpenInvoice, method AllocationMethod, settings ToleranceSettings) (*AllocationPlan, error) {
	if !paymentAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	ordering, err := OrderingFor(method)
	if err != nil {
		return nil, err
	}

	open := make([]OpenInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.BalanceDue.IsPositive() {
			open = append(open, inv)
		}
	}

	amount := valueobject.Round(paymentAmount, valueobject.TreasuryScale)
	plan := &AllocationPlan{
		Method:             method,
		PaymentAmount:      amount,
		Lines:              make([]AllocationLine, 0, len(open)),
		TotalToInvoices:    decimal.Zero,
		ToleranceWriteoffs: decimal.Zero,
		ExcessAmount:       decimal.Zero,
		CreditBalance:      decimal.Zero,
		Tolerance:          settings,
	}

	remaining := amount
	for _, inv := range ordering.Order(open) {
		if !remaining.IsPositive() {
			break
		}
		balance := valueobject.Round(inv.BalanceDue, valueobject.TreasuryScale)
		allocate := decimal.Min(remaining, balance)
		line := AllocationLine{
			DocumentID:        inv.ID,
			DocumentNumber:    inv.Number,
			BalanceBefore:     balance,
			Amount:            allocate,
			ToleranceWriteoff: decimal.Zero,
		}

		if shortfall := balance.Sub(allocate); shortfall.IsPositive() {
			if res := CheckTolerance(balance, allocate, settings); res.Qualifies {
				line.ToleranceWriteoff = shortfall
				line.WriteoffType = ToleranceTypeUnderpayment
			}
		}
		line.BalanceAfter = balance.Sub(line.InvoiceReduction())
		line.FullySettled = line.BalanceAfter.IsZero()

		plan.Lines = append(plan.Lines, line)
		plan.TotalToInvoices = plan.TotalToInvoices.Add(allocate)
		plan.ToleranceWriteoffs = plan.ToleranceWriteoffs.Add(line.ToleranceWriteoff)
		remaining = remaining.Sub(allocate)
	}

	plan.ExcessAmount = amount.Sub(plan.TotalToInvoices)
	if !plan.ExcessAmount.IsPositive() {
		plan.ExcessAmount = decimal.Zero
		return plan, nil
	}

	if n := len(plan.Lines); n > 0 {
		last := &plan.Lines[n-1]
		if res := CheckTolerance(last.BalanceBefore, last.Amount.Add(plan.ExcessAmount), settings); res.Qualifies {
			last.ToleranceWriteoff = last.ToleranceWriteoff.Add(plan.ExcessAmount)
			last.WriteoffType = ToleranceTypeOverpayment
			plan.ToleranceWriteoffs = plan.ToleranceWriteoffs.Add(plan.ExcessAmount)
			plan.ExcessHandling = ExcessHandlingToleranceWriteoff
			return plan, nil
		}
	}
	plan.ExcessHandling = ExcessHandlingCreditBalance
	plan.CreditBalance = plan.ExcessAmount
	return plan, nil
}
