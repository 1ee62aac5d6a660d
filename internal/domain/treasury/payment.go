package treasury

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the allocation state of a payment
type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "pending"
	PaymentStatusPartiallyAllocated PaymentStatus = "partially_allocated"
	PaymentStatusAllocated          PaymentStatus = "allocated"
	PaymentStatusCancelled          PaymentStatus = "cancelled"
)

// IsValid checks if the status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartiallyAllocated, PaymentStatusAllocated, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is money received from a partner, to be allocated against invoices
type Payment struct {
	shared.CompanyAggregateRoot
	PartnerID       uuid.UUID
	PaymentMethodID uuid.UUID
	Amount          valueobject.Money
	PaymentDate     time.Time
	Status          PaymentStatus

	// AllocatedAmount is the sum of allocation rows.
	AllocatedAmount decimal.Decimal
	// WrittenOffAmount is overpayment discarded under tolerance.
	WrittenOffAmount decimal.Decimal
}

// NewPayment creates a pending payment
func NewPayment(companyID, partnerID, paymentMethodID uuid.UUID, amount valueobject.Money, paymentDate time.Time) (*Payment, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		PartnerID:            partnerID,
		PaymentMethodID:      paymentMethodID,
		Amount:               amount.Normalize(valueobject.TreasuryScale),
		PaymentDate:          paymentDate,
		Status:               PaymentStatusPending,
		AllocatedAmount:      decimal.Zero,
		WrittenOffAmount:     decimal.Zero,
	}, nil
}

// Unallocated is the credit balance still available for allocation
func (p *Payment) Unallocated() decimal.Decimal {
	return p.Amount.Amount().Sub(p.AllocatedAmount).Sub(p.WrittenOffAmount)
}

// IsFullyAllocated reports whether nothing is left to allocate
func (p *Payment) IsFullyAllocated() bool {
	return !p.Unallocated().IsPositive()
}

// EnsureAllocatable rejects cancelled or fully allocated payments
func (p *Payment) EnsureAllocatable() error {
	if p.Status == PaymentStatusCancelled {
		return shared.NewInvariantError("PAYMENT_CANCELLED", "Cannot allocate a cancelled payment")
	}
	if p.IsFullyAllocated() {
		return shared.NewInvariantError("PAYMENT_FULLY_ALLOCATED", "Payment is already fully allocated")
	}
	return nil
}

// ApplyPlan records a committed plan against the payment
func (p *Payment) ApplyPlan(plan *AllocationPlan) error {
	if err := p.EnsureAllocatable(); err != nil {
		return err
	}
	used := plan.TotalToInvoices.Add(plan.OverpaymentWrittenOff())
	if used.GreaterThan(p.Unallocated()) {
		return shared.NewInvariantError("ALLOCATION_EXCEEDS_PAYMENT", "Allocations exceed the unallocated payment amount")
	}

	p.AllocatedAmount = p.AllocatedAmount.Add(plan.TotalToInvoices)
	p.WrittenOffAmount = p.WrittenOffAmount.Add(plan.OverpaymentWrittenOff())
	switch {
	case p.IsFullyAllocated():
		p.Status = PaymentStatusAllocated
	case p.AllocatedAmount.IsPositive():
		p.Status = PaymentStatusPartiallyAllocated
	default:
		p.Status = PaymentStatusPending
	}
	p.Touch()
	p.AddDomainEvent(NewPaymentAllocatedEvent(p, plan))
	return nil
}

// PaymentAllocation links part of a payment to one document
type PaymentAllocation struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	PaymentID         uuid.UUID
	DocumentID        uuid.UUID
	Amount            decimal.Decimal
	ToleranceWriteoff decimal.Decimal
	WriteoffType      ToleranceType
	CreatedAt         time.Time
}

// AllocationsFromPlan builds one allocation row per plan line
func AllocationsFromPlan(p *Payment, plan *AllocationPlan) []PaymentAllocation {
	now := time.Now()
	rows := make([]PaymentAllocation, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		rows = append(rows, PaymentAllocation{
			ID:                shared.NewID(),
			CompanyID:         p.CompanyID,
			PaymentID:         p.ID,
			DocumentID:        line.DocumentID,
			Amount:            line.Amount,
			ToleranceWriteoff: line.ToleranceWriteoff,
			WriteoffType:      line.WriteoffType,
			CreatedAt:         now,
		})
	}
	return rows
}

// EventTypePaymentAllocated is emitted when a plan is applied
const EventTypePaymentAllocated = "PaymentAllocated"

// PaymentAllocatedEvent carries the applied plan summary
type PaymentAllocatedEvent struct {
	shared.EventHeader
	PaymentID      uuid.UUID       `json:"payment_id"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	ExcessHandling ExcessHandling  `json:"excess_handling"`
	CreditBalance  decimal.Decimal `json:"credit_balance"`
}

// NewPaymentAllocatedEvent creates the event
func NewPaymentAllocatedEvent(p *Payment, plan *AllocationPlan) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		EventHeader:    shared.NewEventHeader(EventTypePaymentAllocated, "Payment", p.ID, p.CompanyID),
		PaymentID:      p.ID,
		TotalAllocated: plan.TotalToInvoices,
		ExcessHandling: plan.ExcessHandling,
		CreditBalance:  plan.CreditBalance,
	}
}
