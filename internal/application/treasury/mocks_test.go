package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
)

type MockSettingsReader struct {
	mock.Mock
}

func (m *MockSettingsReader) GetCompanyProfile(ctx context.Context, companyID uuid.UUID) (*treasury.CompanyProfile, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.CompanyProfile), args.Error(1)
}

func (m *MockSettingsReader) GetCountrySettings(ctx context.Context, countryCode string) (*treasury.CountryPaymentSettings, error) {
	args := m.Called(ctx, countryCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.CountryPaymentSettings), args.Error(1)
}

type MockPartnerReader struct {
	mock.Mock
}

func (m *MockPartnerReader) PartnerExists(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, companyID, partnerID)
	return args.Bool(0), args.Error(1)
}

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

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *treasury.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) CreateBatch(ctx context.Context, allocations []treasury.PaymentAllocation) error {
	return m.Called(ctx, allocations).Error(0)
}

func (m *MockAllocationRepository) ListByPayment(ctx context.Context, companyID, paymentID uuid.UUID) ([]treasury.PaymentAllocation, error) {
	args := m.Called(ctx, companyID, paymentID)
	return args.Get(0).([]treasury.PaymentAllocation), args.Error(1)
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}
