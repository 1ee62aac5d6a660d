// Package document orchestrates document state transitions, including the
// serialized fiscal chain append performed on posting.
package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garage-erp/backend/internal/application/transaction"
	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
)

// PostingService moves documents through their lifecycle
type PostingService struct {
	scope   transaction.Scope
	locker  shared.Locker
	metrics *telemetry.CoreMetrics
	logger  *zap.Logger
}

// NewPostingService creates a PostingService. locker serializes appends to
// each (company, chain type) fiscal chain.
func NewPostingService(scope transaction.Scope, locker shared.Locker, metrics *telemetry.CoreMetrics, logger *zap.Logger) *PostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{scope: scope, locker: locker, metrics: metrics, logger: logger}
}

// DocumentResult summarizes a document after a transition
type DocumentResult struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"number"`
	Type          document.Type   `json:"type"`
	Status        document.Status `json:"status"`
	BalanceDue    string          `json:"balance_due"`
	FiscalHash    string          `json:"fiscal_hash,omitempty"`
	PreviousHash  string          `json:"previous_hash,omitempty"`
	ChainSequence *int64          `json:"chain_sequence,omitempty"`
}

func toResult(d *document.Document) *DocumentResult {
	return &DocumentResult{
		ID:            d.ID,
		Number:        d.Number,
		Type:          d.Type,
		Status:        d.Status,
		BalanceDue:    d.BalanceDue.StringFixed(4),
		FiscalHash:    d.FiscalHash,
		PreviousHash:  d.PreviousHash,
		ChainSequence: d.ChainSequence,
	}
}

// Confirm moves a draft to confirmed
func (s *PostingService) Confirm(ctx context.Context, companyID, documentID uuid.UUID) (*DocumentResult, error) {
	return s.transition(ctx, "confirm", companyID, documentID, func(d *document.Document) error {
		return d.Confirm()
	})
}

// MarkPaid settles a posted document regardless of its remaining balance
func (s *PostingService) MarkPaid(ctx context.Context, companyID, documentID uuid.UUID) (*DocumentResult, error) {
	return s.transition(ctx, "mark_paid", companyID, documentID, func(d *document.Document) error {
		return d.MarkPaid()
	})
}

// Cancel cancels a draft, confirmed or posted document. A posted fiscal
// document keeps its chain entry and records a cancellation event carrying
// the original hash.
func (s *PostingService) Cancel(ctx context.Context, companyID, documentID uuid.UUID, reason string) (*DocumentResult, error) {
	return s.transition(ctx, "cancel", companyID, documentID, func(d *document.Document) error {
		return d.Cancel(reason)
	})
}

// Delete removes a document that was never posted
func (s *PostingService) Delete(ctx context.Context, companyID, documentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "delete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
	)

	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := doc.EnsureDeletable(); err != nil {
			return err
		}
		return repos.Documents().Delete(ctx, companyID, documentID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

func (s *PostingService) transition(
	ctx context.Context,
	op string,
	companyID, documentID uuid.UUID,
	apply func(d *document.Document) error,
) (*DocumentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
	)

	var result *DocumentResult
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := apply(doc); err != nil {
			return err
		}
		if err := saveWithEvents(ctx, repos, doc); err != nil {
			return err
		}
		result = toResult(doc)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Document transitioned",
		zap.String("operation", op),
		zap.String("company_id", companyID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("status", result.Status.String()),
	)
	return result, nil
}

// Post posts a confirmed document. Fiscal documents get the next entry of
// their company's chain while the chain lock is held; the entry, the status
// change and any credit applied to a source invoice commit together or not
// at all.
func (s *PostingService) Post(ctx context.Context, companyID, documentID uuid.UUID) (*DocumentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
	)

	start := time.Now()
	result, err := s.post(ctx, companyID, documentID)
	s.metrics.RecordOperation(ctx, "posting.post", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Document posting failed",
			zap.String("company_id", companyID.String()),
			zap.String("document_id", documentID.String()),
			zap.Bool("retryable", shared.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if result.ChainSequence != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrSequence, *result.ChainSequence)
		s.metrics.RecordFiscalEntry(ctx, string(chainTypeOf(result.Type)))
	}
	s.logger.Info("Document posted",
		zap.String("company_id", companyID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("number", result.Number),
		zap.String("fiscal_hash", result.FiscalHash),
	)
	return result, nil
}

func (s *PostingService) post(ctx context.Context, companyID, documentID uuid.UUID) (*DocumentResult, error) {
	// Type is immutable, so it can be read before taking the chain lock.
	var docType document.Type
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		doc, err := repos.Documents().FindByID(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := doc.EnsurePostable(); err != nil {
			return err
		}
		docType = doc.Type
		return nil
	})
	if err != nil {
		return nil, err
	}

	chainType, fiscalDoc := docType.ChainType()
	if !fiscalDoc {
		return s.postInTx(ctx, companyID, documentID, nil)
	}

	key := fiscal.ChainKey{CompanyID: companyID, ChainType: chainType}
	var result *DocumentResult
	err = s.locker.WithExclusiveLock(ctx, key.LockKey(), func(ctx context.Context) error {
		r, err := s.postInTx(ctx, companyID, documentID, &key)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostingService) postInTx(ctx context.Context, companyID, documentID uuid.UUID, key *fiscal.ChainKey) (*DocumentResult, error) {
	var result *DocumentResult
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, companyID, documentID)
		if err != nil {
			return err
		}
		if err := doc.EnsurePostable(); err != nil {
			return err
		}

		if doc.Type == document.TypeCreditNote {
			if err := applyCreditToSource(ctx, repos, doc); err != nil {
				return err
			}
		}

		var entry *fiscal.Entry
		if key != nil {
			last, err := repos.FiscalChain().LastForUpdate(ctx, *key)
			if err != nil {
				return err
			}
			entry, err = fiscal.NextEntry(last, companyID, key.ChainType, doc.ID, doc.FiscalPayload())
			if err != nil {
				return err
			}
			if err := repos.FiscalChain().Append(ctx, entry); err != nil {
				return err
			}
		}

		if err := doc.MarkPosted(entry); err != nil {
			return err
		}
		if err := saveWithEvents(ctx, repos, doc); err != nil {
			return err
		}
		result = toResult(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applyCreditToSource(ctx context.Context, repos transaction.Repositories, credit *document.Document) error {
	if credit.SourceDocumentID == nil {
		return shared.NewValidationError("SOURCE_REQUIRED", "Credit note must reference the invoice it credits")
	}
	source, err := repos.Documents().FindByIDForUpdate(ctx, credit.CompanyID, *credit.SourceDocumentID)
	if err != nil {
		return err
	}
	if source.PartnerID != credit.PartnerID {
		return shared.NewInvariantError("PARTNER_MISMATCH", "Credit note partner must match the source invoice")
	}
	if err := source.ApplyCredit(credit.Total); err != nil {
		return err
	}
	return saveWithEvents(ctx, repos, source)
}

func saveWithEvents(ctx context.Context, repos transaction.Repositories, doc *document.Document) error {
	if err := repos.Documents().Save(ctx, doc); err != nil {
		return err
	}
	events := doc.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := repos.Events().Append(ctx, events...); err != nil {
		return err
	}
	doc.ClearDomainEvents()
	return nil
}

func chainTypeOf(t document.Type) fiscal.ChainType {
	ct, _ := t.ChainType()
	return ct
}
