// Package document models quotes, orders, invoices and credit notes and the
// lifecycle that ends in fiscal posting.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the kind of business document
type Type string

const (
	TypeQuote      Type = "quote"
	TypeOrder      Type = "order"
	TypeInvoice    Type = "invoice"
	TypeCreditNote Type = "credit_note"
)

// IsValid checks if the document type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeQuote, TypeOrder, TypeInvoice, TypeCreditNote:
		return true
	}
	return false
}

// ChainType returns the fiscal chain the type posts into.
// The second value is false for non-fiscal types.
func (t Type) ChainType() (fiscal.ChainType, bool) {
	switch t {
	case TypeInvoice:
		return fiscal.ChainTypeInvoice, true
	case TypeCreditNote:
		return fiscal.ChainTypeCreditNote, true
	case TypeQuote, TypeOrder:
		return "", false
	}
	return "", false
}

// IsFiscal reports whether posting appends to a hash chain
func (t Type) IsFiscal() bool {
	_, ok := t.ChainType()
	return ok
}

// Status is the lifecycle state of a document
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusPosted    Status = "posted"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusPosted, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusPosted || target == StatusCancelled
	case StatusPosted:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid, StatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsPostedOrPaid reports whether the document went through posting and was not cancelled
func (s Status) IsPostedOrPaid() bool {
	return s == StatusPosted || s == StatusPaid
}

// Document is a business document owned by one company
type Document struct {
	shared.CompanyAggregateRoot
	PartnerID    uuid.UUID
	Type         Type
	Number       string
	DocumentDate time.Time
	DueDate      *time.Time
	Total        valueobject.Money
	Status       Status
	BalanceDue   decimal.Decimal

	// Credit notes reference the invoice they credit.
	SourceDocumentID *uuid.UUID
	// CreditedAmount is the sum of posted credit notes against this invoice.
	CreditedAmount decimal.Decimal

	FiscalHash    string
	PreviousHash  string
	ChainSequence *int64

	ConfirmedAt        *time.Time
	PostedAt           *time.Time
	PaidAt             *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// NewDocument creates a draft document
func NewDocument(companyID, partnerID uuid.UUID, docType Type, number string, documentDate time.Time, dueDate *time.Time, total valueobject.Money) (*Document, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewValidationError("INVALID_DOCUMENT_TYPE", "Unknown document type: "+string(docType))
	}
	d := &Document{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		PartnerID:            partnerID,
		Type:                 docType,
		Status:               StatusDraft,
		BalanceDue:           decimal.Zero,
		CreditedAmount:       decimal.Zero,
	}
	if err := d.setContent(number, documentDate, dueDate, total); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) setContent(number string, documentDate time.Time, dueDate *time.Time, total valueobject.Money) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewValidationError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if documentDate.IsZero() {
		return shared.NewValidationError("INVALID_DATE", "Document date is required")
	}
	if dueDate != nil && dueDate.Before(documentDate) {
		return shared.NewValidationError("INVALID_DUE_DATE", "Due date cannot be before document date")
	}
	if total.IsNegative() {
		return shared.NewValidationError("INVALID_AMOUNT", "Document total cannot be negative")
	}
	d.Number = number
	d.DocumentDate = documentDate
	d.DueDate = dueDate
	d.Total = total.Normalize(valueobject.DocumentScale)
	return nil
}

// IsEditable reports whether content may still change
func (d *Document) IsEditable() bool {
	return d.Status == StatusDraft || d.Status == StatusConfirmed
}

// Edit replaces the document content. Posted documents are immutable.
func (d *Document) Edit(number string, documentDate time.Time, dueDate *time.Time, total valueobject.Money) error {
	if !d.IsEditable() {
		return shared.NewInvariantError("DOCUMENT_IMMUTABLE", fmt.Sprintf("Cannot edit document in %s status", d.Status))
	}
	if err := d.setContent(number, documentDate, dueDate, total); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// EnsureDeletable rejects deletion once the document was posted
func (d *Document) EnsureDeletable() error {
	if !d.IsEditable() {
		return shared.NewInvariantError("DOCUMENT_IMMUTABLE", fmt.Sprintf("Cannot delete document in %s status", d.Status))
	}
	return nil
}

// Confirm moves a draft to confirmed
func (d *Document) Confirm() error {
	if !d.Status.CanTransitionTo(StatusConfirmed) {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Cannot confirm document in %s status", d.Status))
	}
	if d.Type.IsFiscal() && !d.Total.IsPositive() {
		return shared.NewInvariantError("INVALID_AMOUNT", "Fiscal document total must be positive")
	}
	now := time.Now()
	d.Status = StatusConfirmed
	d.ConfirmedAt = &now
	d.UpdatedAt = now
	return nil
}

// EnsurePostable checks the transition before any chain work starts
func (d *Document) EnsurePostable() error {
	if d.Status != StatusConfirmed {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Cannot post document in %s status", d.Status))
	}
	return nil
}

// FiscalPayload returns the fields covered by the fiscal hash
func (d *Document) FiscalPayload() fiscal.Payload {
	return fiscal.Payload{
		DocumentNumber: d.Number,
		Date:           d.DocumentDate,
		Total:          d.Total.Amount(),
		Currency:       string(d.Total.Currency()),
	}
}

// MarkPosted completes posting. Fiscal documents require the chain entry
// appended for them; other documents must pass nil.
func (d *Document) MarkPosted(entry *fiscal.Entry) error {
	if err := d.EnsurePostable(); err != nil {
		return err
	}
	chainType, fiscalDoc := d.Type.ChainType()
	switch {
	case fiscalDoc && entry == nil:
		return shared.NewInvariantError("FISCAL_ENTRY_REQUIRED", "Fiscal documents must be posted with a chain entry")
	case fiscalDoc && (entry.DocumentID != d.ID || entry.ChainType != chainType || entry.CompanyID != d.CompanyID):
		return shared.NewInvariantError("FISCAL_ENTRY_MISMATCH", "Chain entry does not belong to this document")
	case !fiscalDoc && entry != nil:
		return shared.NewInvariantError("FISCAL_ENTRY_UNEXPECTED", "Non-fiscal documents are not chained")
	}

	now := time.Now()
	d.Status = StatusPosted
	d.PostedAt = &now
	d.UpdatedAt = now
	if d.Type == TypeInvoice {
		d.BalanceDue = d.Total.Amount()
	}
	if entry != nil {
		seq := entry.SequenceNumber
		d.FiscalHash = entry.Hash
		d.PreviousHash = entry.PreviousHash
		d.ChainSequence = &seq
	}
	d.AddDomainEvent(NewDocumentPostedEvent(d))
	return nil
}

// IsOpenInvoice reports whether the document can receive allocations
func (d *Document) IsOpenInvoice() bool {
	return d.Type == TypeInvoice && d.Status.IsPostedOrPaid() && d.BalanceDue.IsPositive()
}

// ApplyPayment lowers the balance by reduction (allocated amount plus any
// written-off shortfall). A posted invoice reaching zero becomes paid.
func (d *Document) ApplyPayment(reduction decimal.Decimal) error {
	if d.Type != TypeInvoice || !d.Status.IsPostedOrPaid() {
		return shared.NewInvariantError("NOT_ALLOCATABLE", "Only posted invoices can receive payments")
	}
	if !reduction.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment reduction must be positive")
	}
	if reduction.GreaterThan(d.BalanceDue) {
		return shared.NewInvariantError("EXCEEDS_BALANCE", fmt.Sprintf("Reduction %s exceeds balance due %s",
			reduction.StringFixed(valueobject.TreasuryScale), d.BalanceDue.StringFixed(valueobject.TreasuryScale)))
	}
	d.BalanceDue = d.BalanceDue.Sub(reduction)
	d.Touch()
	if d.BalanceDue.IsZero() && d.Status == StatusPosted {
		return d.markPaid()
	}
	return nil
}

// MarkPaid settles a posted document explicitly
func (d *Document) MarkPaid() error {
	if !d.Status.CanTransitionTo(StatusPaid) {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Cannot mark document paid in %s status", d.Status))
	}
	d.BalanceDue = decimal.Zero
	return d.markPaid()
}

func (d *Document) markPaid() error {
	now := time.Now()
	d.Status = StatusPaid
	d.PaidAt = &now
	d.UpdatedAt = now
	d.AddDomainEvent(NewDocumentPaidEvent(d))
	return nil
}

// CreditableAmount is how much may still be credited against this invoice
func (d *Document) CreditableAmount() decimal.Decimal {
	return d.Total.Amount().Sub(d.CreditedAmount)
}

// EnsureCreditable checks that a credit note of amount may be posted against d
func (d *Document) EnsureCreditable(amount valueobject.Money) error {
	if d.Type != TypeInvoice {
		return shared.NewInvariantError("NOT_CREDITABLE", "Only invoices can be credited")
	}
	if !d.Status.IsPostedOrPaid() {
		return shared.NewInvariantError("NOT_CREDITABLE", fmt.Sprintf("Cannot credit invoice in %s status", d.Status))
	}
	credited, err := valueobject.NewMoney(d.CreditedAmount, d.Total.Currency())
	if err != nil {
		return err
	}
	creditable, err := d.Total.Sub(credited)
	if err != nil {
		return err
	}
	left, err := creditable.Sub(amount)
	if err != nil {
		return shared.NewValidationError("CURRENCY_MISMATCH", "Credit note currency must match the invoice")
	}
	if left.IsNegative() {
		return shared.NewInvariantError("CREDIT_EXCEEDS_INVOICE", fmt.Sprintf("Credit %s exceeds creditable amount %s",
			amount.StringFixed(valueobject.DocumentScale), creditable.StringFixed(valueobject.DocumentScale)))
	}
	return nil
}

// ApplyCredit records a posted credit note against this invoice
func (d *Document) ApplyCredit(amount valueobject.Money) error {
	if err := d.EnsureCreditable(amount); err != nil {
		return err
	}
	d.CreditedAmount = d.CreditedAmount.Add(amount.Amount())
	d.Touch()
	reduction := decimal.Min(amount.Amount(), d.BalanceDue)
	if reduction.IsPositive() {
		return d.ApplyPayment(reduction)
	}
	return nil
}

// Cancel moves the document to cancelled. A posted fiscal document keeps its
// chain entry; the cancellation event references the original hash.
func (d *Document) Cancel(reason string) error {
	if !d.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewInvariantError("INVALID_STATE", fmt.Sprintf("Cannot cancel document in %s status", d.Status))
	}
	reason = strings.TrimSpace(reason)
	if d.Status == StatusPosted && reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required for posted documents")
	}
	wasPosted := d.Status == StatusPosted
	now := time.Now()
	d.Status = StatusCancelled
	d.CancelledAt = &now
	d.CancellationReason = reason
	d.UpdatedAt = now
	if wasPosted {
		d.BalanceDue = decimal.Zero
		d.AddDomainEvent(NewDocumentCancelledEvent(d))
	}
	return nil
}
