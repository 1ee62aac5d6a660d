package fiscal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
)

type MockChainRepository struct {
	mock.Mock
}

func (m *MockChainRepository) LastForUpdate(ctx context.Context, key fiscal.ChainKey) (*fiscal.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Entry), args.Error(1)
}

func (m *MockChainRepository) Append(ctx context.Context, entry *fiscal.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockChainRepository) ListChain(ctx context.Context, key fiscal.ChainKey) ([]fiscal.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.Entry), args.Error(1)
}

func (m *MockChainRepository) ListChains(ctx context.Context) ([]fiscal.ChainKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.ChainKey), args.Error(1)
}

func (m *MockChainRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) (*fiscal.Entry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Entry), args.Error(1)
}

func buildChain(t *testing.T, key fiscal.ChainKey, n int) []fiscal.Entry {
	t.Helper()
	entries := make([]fiscal.Entry, 0, n)
	var last *fiscal.Entry
	for i := 0; i < n; i++ {
		payload := fiscal.Payload{
			DocumentNumber: "INV-" + time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC).Format("0102"),
			Date:           time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC),
			Total:          decimal.NewFromInt(int64(100 + i)),
			Currency:       "EUR",
		}
		e, err := fiscal.NextEntry(last, key.CompanyID, key.ChainType, uuid.New(), payload)
		require.NoError(t, err)
		entries = append(entries, *e)
		last = e
	}
	return entries
}

func TestVerificationService_VerifyChain(t *testing.T) {
	ctx := context.Background()
	key := fiscal.ChainKey{CompanyID: uuid.New(), ChainType: fiscal.ChainTypeInvoice}

	t.Run("intact chain", func(t *testing.T) {
		repo := new(MockChainRepository)
		chain := buildChain(t, key, 5)
		repo.On("ListChain", mock.Anything, key).Return(chain, nil)

		svc := NewVerificationService(repo, nil, nil)
		got, err := svc.VerifyChain(ctx, key.CompanyID, key.ChainType)
		require.NoError(t, err)
		assert.True(t, got.Valid)
		assert.Equal(t, 5, got.Length)
		assert.Equal(t, int64(5), got.LastVerified)
		assert.Equal(t, chain[4].Hash, got.LastHash)
	})

	t.Run("tampered payload is reported at its sequence", func(t *testing.T) {
		repo := new(MockChainRepository)
		chain := buildChain(t, key, 4)
		chain[2].Payload.Total = decimal.RequireFromString("999.99")
		repo.On("ListChain", mock.Anything, key).Return(chain, nil)

		svc := NewVerificationService(repo, nil, nil)
		got, err := svc.VerifyChain(ctx, key.CompanyID, key.ChainType)
		require.NoError(t, err)
		assert.False(t, got.Valid)
		assert.Equal(t, int64(3), got.BrokenAt)
		assert.Equal(t, fiscal.BreakHashMismatch, got.Reason)
		assert.Equal(t, int64(2), got.LastVerified)
	})

	t.Run("empty chain is valid", func(t *testing.T) {
		repo := new(MockChainRepository)
		repo.On("ListChain", mock.Anything, key).Return([]fiscal.Entry{}, nil)

		svc := NewVerificationService(repo, nil, nil)
		got, err := svc.VerifyChain(ctx, key.CompanyID, key.ChainType)
		require.NoError(t, err)
		assert.True(t, got.Valid)
		assert.Zero(t, got.Length)
	})

	t.Run("unknown chain type", func(t *testing.T) {
		svc := NewVerificationService(new(MockChainRepository), nil, nil)
		_, err := svc.VerifyChain(ctx, key.CompanyID, fiscal.ChainType("receipt"))
		kind, _ := shared.KindOf(err)
		assert.Equal(t, shared.KindValidation, kind)
	})

	t.Run("store error", func(t *testing.T) {
		repo := new(MockChainRepository)
		repo.On("ListChain", mock.Anything, key).Return(nil, errors.New("timeout"))

		svc := NewVerificationService(repo, nil, nil)
		_, err := svc.VerifyChain(ctx, key.CompanyID, key.ChainType)
		assert.EqualError(t, err, "timeout")
	})
}

func TestVerificationService_VerifyAll(t *testing.T) {
	ctx := context.Background()
	company := uuid.New()
	invoices := fiscal.ChainKey{CompanyID: company, ChainType: fiscal.ChainTypeInvoice}
	credits := fiscal.ChainKey{CompanyID: company, ChainType: fiscal.ChainTypeCreditNote}

	broken := buildChain(t, credits, 3)
	broken[1].PreviousHash = "0000"

	repo := new(MockChainRepository)
	repo.On("ListChains", mock.Anything).Return([]fiscal.ChainKey{invoices, credits}, nil)
	repo.On("ListChain", mock.Anything, invoices).Return(buildChain(t, invoices, 3), nil)
	repo.On("ListChain", mock.Anything, credits).Return(broken, nil)

	svc := NewVerificationService(repo, nil, nil)
	reports, err := svc.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// credit_note sorts before invoice
	assert.Equal(t, fiscal.ChainTypeCreditNote, reports[0].ChainType)
	assert.False(t, reports[0].Valid)
	assert.Equal(t, fiscal.BreakLinkBroken, reports[0].Reason)
	assert.True(t, reports[1].Valid)

	bad := BrokenChains(reports)
	require.Len(t, bad, 1)
	assert.Equal(t, credits.ChainType, bad[0].ChainType)
}

func TestVerificationService_VerifyDocument(t *testing.T) {
	ctx := context.Background()
	key := fiscal.ChainKey{CompanyID: uuid.New(), ChainType: fiscal.ChainTypeInvoice}
	chain := buildChain(t, key, 2)

	repo := new(MockChainRepository)
	repo.On("FindByDocument", mock.Anything, chain[1].DocumentID).Return(&chain[1], nil)
	missing := uuid.New()
	repo.On("FindByDocument", mock.Anything, missing).Return(nil, nil)

	svc := NewVerificationService(repo, nil, nil)

	got, err := svc.VerifyDocument(ctx, key.CompanyID, chain[1].DocumentID)
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.Equal(t, int64(2), got.SequenceNumber)
	assert.Equal(t, chain[0].Hash, got.PreviousHash)

	_, err = svc.VerifyDocument(ctx, key.CompanyID, missing)
	kind, _ := shared.KindOf(err)
	assert.Equal(t, shared.KindNotFound, kind)

	_, err = svc.VerifyDocument(ctx, uuid.New(), chain[1].DocumentID)
	kind, _ = shared.KindOf(err)
	assert.Equal(t, shared.KindNotFound, kind)
}

func TestChainVerificationJob_Run(t *testing.T) {
	ctx := context.Background()
	key := fiscal.ChainKey{CompanyID: uuid.New(), ChainType: fiscal.ChainTypeInvoice}

	t.Run("intact chains succeed", func(t *testing.T) {
		repo := new(MockChainRepository)
		repo.On("ListChains", mock.Anything).Return([]fiscal.ChainKey{key}, nil)
		repo.On("ListChain", mock.Anything, key).Return(buildChain(t, key, 2), nil)

		job := NewChainVerificationJob(NewVerificationService(repo, nil, nil))
		assert.Equal(t, "fiscal_chain_verification", job.Name())
		assert.NoError(t, job.Run(ctx))
	})

	t.Run("a broken chain fails the run", func(t *testing.T) {
		chain := buildChain(t, key, 2)
		chain[1].Hash = "tampered"
		repo := new(MockChainRepository)
		repo.On("ListChains", mock.Anything).Return([]fiscal.ChainKey{key}, nil)
		repo.On("ListChain", mock.Anything, key).Return(chain, nil)

		err := NewChainVerificationJob(NewVerificationService(repo, nil, nil)).Run(ctx)
		assert.ErrorIs(t, err, ErrChainsBroken)
		assert.ErrorContains(t, err, "1 of 1")
	})

	t.Run("store errors pass through", func(t *testing.T) {
		repo := new(MockChainRepository)
		repo.On("ListChains", mock.Anything).Return(nil, errors.New("db down"))

		err := NewChainVerificationJob(NewVerificationService(repo, nil, nil)).Run(ctx)
		assert.EqualError(t, err, "db down")
	})
}
