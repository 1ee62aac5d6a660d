package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindOpenInvoices(ctx context.Context, companyID, partnerID uuid.UUID) ([]*document.Document, error) {
	args := m.Called(ctx, companyID, partnerID)
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindOpenInvoicesForUpdate(ctx context.Context, companyID, partnerID uuid.UUID) ([]*document.Document, error) {
	args := m.Called(ctx, companyID, partnerID)
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}

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
	return args.Get(0).([]fiscal.Entry), args.Error(1)
}

func (m *MockChainRepository) ListChains(ctx context.Context) ([]fiscal.ChainKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]fiscal.ChainKey), args.Error(1)
}

func (m *MockChainRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) (*fiscal.Entry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Entry), args.Error(1)
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

// recordingLocker runs fn unless err is set and remembers the keys it saw
type recordingLocker struct {
	err  error
	keys []string
}

func (l *recordingLocker) WithExclusiveLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}
