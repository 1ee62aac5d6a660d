// Package fiscal exposes read-only integrity checks over the fiscal hash chains.
package fiscal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
)

const verifyAllConcurrency = 4

// VerificationService recomputes chain hashes from stored payloads
type VerificationService struct {
	chains  fiscal.Repository
	metrics *telemetry.CoreMetrics
	logger  *zap.Logger
}

// NewVerificationService creates a VerificationService
func NewVerificationService(chains fiscal.Repository, metrics *telemetry.CoreMetrics, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{chains: chains, metrics: metrics, logger: logger}
}

// ChainVerification is the report for one chain
type ChainVerification struct {
	CompanyID uuid.UUID        `json:"company_id"`
	ChainType fiscal.ChainType `json:"chain_type"`
	fiscal.ChainReport
}

// DocumentVerification is the check of a single document's chain entry
type DocumentVerification struct {
	DocumentID     uuid.UUID        `json:"document_id"`
	ChainType      fiscal.ChainType `json:"chain_type"`
	SequenceNumber int64            `json:"sequence_number"`
	Hash           string           `json:"hash"`
	PreviousHash   string           `json:"previous_hash"`
	Valid          bool             `json:"valid"`
}

// VerifyChain walks one chain in sequence order
func (s *VerificationService) VerifyChain(ctx context.Context, companyID uuid.UUID, chainType fiscal.ChainType) (*ChainVerification, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fiscal", "verify_chain")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrChainType, string(chainType),
	)

	if !chainType.IsValid() {
		err := shared.NewValidationError("INVALID_CHAIN_TYPE", "Unknown fiscal chain type: "+string(chainType))
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := fiscal.ChainKey{CompanyID: companyID, ChainType: chainType}
	start := time.Now()
	result, err := s.verify(ctx, key)
	s.metrics.RecordOperation(ctx, "fiscal.verify_chain", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSequence, result.LastVerified)
	return result, nil
}

func (s *VerificationService) verify(ctx context.Context, key fiscal.ChainKey) (*ChainVerification, error) {
	entries, err := s.chains.ListChain(ctx, key)
	if err != nil {
		return nil, err
	}
	report := fiscal.VerifyChain(entries)
	s.metrics.RecordChainVerification(ctx, string(key.ChainType), report.Valid)

	if !report.Valid {
		s.logger.Error("Fiscal chain integrity broken",
			zap.String("company_id", key.CompanyID.String()),
			zap.String("chain_type", string(key.ChainType)),
			zap.Int64("broken_at", report.BrokenAt),
			zap.String("reason", string(report.Reason)),
		)
	} else {
		s.logger.Debug("Fiscal chain verified",
			zap.String("company_id", key.CompanyID.String()),
			zap.String("chain_type", string(key.ChainType)),
			zap.Int("length", report.Length),
		)
	}
	return &ChainVerification{CompanyID: key.CompanyID, ChainType: key.ChainType, ChainReport: report}, nil
}

// VerifyAll verifies every chain in the store. Reports are ordered by company
// then chain type.
func (s *VerificationService) VerifyAll(ctx context.Context) ([]ChainVerification, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fiscal", "verify_all")
	defer span.End()

	keys, err := s.chains.ListChains(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		mu      sync.Mutex
		reports = make([]ChainVerification, 0, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyAllConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			r, err := s.verify(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			reports = append(reports, *r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if a.CompanyID != b.CompanyID {
			return a.CompanyID.String() < b.CompanyID.String()
		}
		return a.ChainType < b.ChainType
	})

	broken := 0
	for _, r := range reports {
		if !r.Valid {
			broken++
		}
	}
	telemetry.SetAttributes(span, "chains", len(reports), "broken", broken)
	s.logger.Info("Fiscal chains verified", zap.Int("chains", len(reports)), zap.Int("broken", broken))
	return reports, nil
}

// VerifyDocument recomputes the hash of the entry written for one document.
// An entry of another company is reported as missing.
func (s *VerificationService) VerifyDocument(ctx context.Context, companyID, documentID uuid.UUID) (*DocumentVerification, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fiscal", "verify_document")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
	)

	entry, err := s.chains.FindByDocument(ctx, documentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if entry == nil || entry.CompanyID != companyID {
		err := shared.NewNotFoundError("FISCAL_ENTRY_NOT_FOUND", "Document has no fiscal chain entry")
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &DocumentVerification{
		DocumentID:     documentID,
		ChainType:      entry.ChainType,
		SequenceNumber: entry.SequenceNumber,
		Hash:           entry.Hash,
		PreviousHash:   entry.PreviousHash,
		Valid:          fiscal.Verify(*entry),
	}, nil
}

// BrokenChains filters reports down to the invalid ones
func BrokenChains(reports []ChainVerification) []ChainVerification {
	var out []ChainVerification
	for _, r := range reports {
		if !r.Valid {
			out = append(out, r)
		}
	}
	return out
}
