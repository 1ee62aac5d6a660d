package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garage-erp/backend/internal/application/transaction"
	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
)

// AllocationService previews and applies payment allocations
type AllocationService struct {
	documents document.Repository
	partners  treasury.PartnerReader
	tolerance *ToleranceService
	scope     transaction.Scope
	metrics   *telemetry.CoreMetrics
	logger    *zap.Logger
}

// NewAllocationService creates an AllocationService. documents serves the
// read-only preview; applies go through scope.
func NewAllocationService(
	documents document.Repository,
	partners treasury.PartnerReader,
	tolerance *ToleranceService,
	scope transaction.Scope,
	metrics *telemetry.CoreMetrics,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		documents: documents,
		partners:  partners,
		tolerance: tolerance,
		scope:     scope,
		metrics:   metrics,
		logger:    logger,
	}
}

// PreviewAllocationRequest is the input of PreviewAllocation. Only invoices
// in Currency are considered; empty means the default currency.
type PreviewAllocationRequest struct {
	CompanyID     uuid.UUID
	PartnerID     uuid.UUID
	PaymentAmount decimal.Decimal
	Currency      valueobject.Currency
	Method        treasury.AllocationMethod
}

// ApplyAllocationRequest is the input of ApplyAllocation
type ApplyAllocationRequest struct {
	CompanyID uuid.UUID
	PaymentID uuid.UUID
	Method    treasury.AllocationMethod
}

// ApplyAllocationResult is what an allocation returns. Success is false when
// the partner had no open invoice in the payment's currency; nothing is
// written then.
type ApplyAllocationResult struct {
	Success       bool
	PaymentID     uuid.UUID
	PaymentStatus treasury.PaymentStatus
	Plan          *treasury.AllocationPlan
	Allocations   []treasury.PaymentAllocation
}

// PreviewAllocation computes the plan for a hypothetical payment. It writes
// nothing, so identical inputs give identical plans.
func (s *AllocationService) PreviewAllocation(ctx context.Context, req PreviewAllocationRequest) (*treasury.AllocationPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "preview")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrPartnerID, req.PartnerID.String(),
		telemetry.SpanAttrAmount, req.PaymentAmount.String(),
		telemetry.SpanAttrMethod, req.Method.String(),
	)

	plan, err := s.preview(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "lines", len(plan.Lines), "excess_handling", string(plan.ExcessHandling))
	return plan, nil
}

func (s *AllocationService) preview(ctx context.Context, req PreviewAllocationRequest) (*treasury.AllocationPlan, error) {
	if !req.PaymentAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	method, err := treasury.ParseAllocationMethod(string(req.Method))
	if err != nil {
		return nil, err
	}

	settings, err := s.tolerance.resolve(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePartner(ctx, req.CompanyID, req.PartnerID); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	docs, err := s.documents.FindOpenInvoices(ctx, req.CompanyID, req.PartnerID)
	if err != nil {
		return nil, err
	}
	return treasury.PlanAllocation(req.PaymentAmount, openInvoices(docs, currency), method, settings)
}

// ApplyAllocation allocates the payment's unallocated amount in one
// transaction: the payment and the partner's open invoices are row-locked,
// the plan is recomputed, allocation rows are written and every invoice
// balance is reduced. A fully allocated payment is rejected.
func (s *AllocationService) ApplyAllocation(ctx context.Context, req ApplyAllocationRequest) (*ApplyAllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrMethod, req.Method.String(),
	)

	start := time.Now()
	result, err := s.apply(ctx, req)
	s.metrics.RecordOperation(ctx, "allocation.apply", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Payment allocation failed",
			zap.String("company_id", req.CompanyID.String()),
			zap.String("payment_id", req.PaymentID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if !result.Success {
		s.logger.Info("No open invoices to allocate",
			zap.String("company_id", req.CompanyID.String()),
			zap.String("payment_id", req.PaymentID.String()),
		)
		return result, nil
	}

	writeoffLines := 0
	for _, line := range result.Plan.Lines {
		if line.ToleranceWriteoff.IsPositive() {
			writeoffLines++
		}
	}
	s.metrics.RecordAllocation(ctx, result.Plan.Method.String(), writeoffLines,
		result.Plan.ExcessHandling == treasury.ExcessHandlingCreditBalance)

	s.logger.Info("Payment allocated",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("payment_id", req.PaymentID.String()),
		zap.Int("lines", len(result.Allocations)),
		zap.String("total_to_invoices", result.Plan.TotalToInvoices.StringFixed(4)),
		zap.String("excess_handling", string(result.Plan.ExcessHandling)),
	)
	return result, nil
}

func (s *AllocationService) apply(ctx context.Context, req ApplyAllocationRequest) (*ApplyAllocationResult, error) {
	method, err := treasury.ParseAllocationMethod(string(req.Method))
	if err != nil {
		return nil, err
	}
	settings, err := s.tolerance.resolve(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	var result *ApplyAllocationResult
	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		payment, err := repos.Payments().FindByIDForUpdate(ctx, req.CompanyID, req.PaymentID)
		if err != nil {
			return err
		}
		if err := payment.EnsureAllocatable(); err != nil {
			return err
		}

		docs, err := repos.Documents().FindOpenInvoicesForUpdate(ctx, req.CompanyID, payment.PartnerID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*document.Document, len(docs))
		for _, d := range docs {
			byID[d.ID] = d
		}

		plan, err := treasury.PlanAllocation(payment.Unallocated(), openInvoices(docs, payment.Amount.Currency()), method, settings)
		if err != nil {
			return err
		}
		if len(plan.Lines) == 0 {
			result = &ApplyAllocationResult{
				PaymentID:     payment.ID,
				PaymentStatus: payment.Status,
				Plan:          plan,
			}
			return nil
		}

		if err := payment.ApplyPlan(plan); err != nil {
			return err
		}
		rows := treasury.AllocationsFromPlan(payment, plan)
		if len(rows) > 0 {
			if err := repos.Allocations().CreateBatch(ctx, rows); err != nil {
				return err
			}
		}

		var events []shared.DomainEvent
		for _, line := range plan.Lines {
			doc := byID[line.DocumentID]
			if err := doc.ApplyPayment(line.InvoiceReduction()); err != nil {
				return err
			}
			if err := repos.Documents().Save(ctx, doc); err != nil {
				return err
			}
			events = append(events, doc.GetDomainEvents()...)
			doc.ClearDomainEvents()
		}

		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
		events = append(events, payment.GetDomainEvents()...)
		payment.ClearDomainEvents()
		if len(events) > 0 {
			if err := repos.Events().Append(ctx, events...); err != nil {
				return err
			}
		}

		result = &ApplyAllocationResult{
			Success:       true,
			PaymentID:     payment.ID,
			PaymentStatus: payment.Status,
			Plan:          plan,
			Allocations:   rows,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AllocationService) ensurePartner(ctx context.Context, companyID, partnerID uuid.UUID) error {
	if partnerID == uuid.Nil {
		return shared.NewValidationError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	ok, err := s.partners.PartnerExists(ctx, companyID, partnerID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError("PARTNER_NOT_FOUND", "Partner not found")
	}
	return nil
}

// openInvoices converts documents to allocation input. A non-empty currency
// keeps only invoices in that currency.
func openInvoices(docs []*document.Document, currency valueobject.Currency) []treasury.OpenInvoice {
	out := make([]treasury.OpenInvoice, 0, len(docs))
	for _, d := range docs {
		if !d.IsOpenInvoice() {
			continue
		}
		if d.Total.Currency() != currency {
			continue
		}
		out = append(out, treasury.OpenInvoice{
			ID:           d.ID,
			Number:       d.Number,
			DocumentDate: d.DocumentDate,
			DueDate:      d.DueDate,
			BalanceDue:   d.BalanceDue,
		})
	}
	return out
}
