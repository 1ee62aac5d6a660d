package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	documentapp "github.com/garage-erp/backend/internal/application/document"
	fiscalapp "github.com/garage-erp/backend/internal/application/fiscal"
	inventoryapp "github.com/garage-erp/backend/internal/application/inventory"
	treasuryapp "github.com/garage-erp/backend/internal/application/treasury"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/garage-erp/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// newTestEngine returns an engine with the request id middleware; register
// routes on it and serve requests with perform
func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func perform(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// dataMap re-decodes resp.Data into a generic map
func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

type mockAllocationService struct{ mock.Mock }

func (m *mockAllocationService) PreviewAllocation(ctx context.Context, req treasuryapp.PreviewAllocationRequest) (*treasury.AllocationPlan, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*treasury.AllocationPlan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAllocationService) ApplyAllocation(ctx context.Context, req treasuryapp.ApplyAllocationRequest) (*treasuryapp.ApplyAllocationResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*treasuryapp.ApplyAllocationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockToleranceService struct{ mock.Mock }

func (m *mockToleranceService) GetToleranceSettings(ctx context.Context, companyID uuid.UUID) (treasury.ToleranceSettings, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(treasury.ToleranceSettings), args.Error(1)
}

func (m *mockToleranceService) CheckTolerance(ctx context.Context, req treasuryapp.CheckToleranceRequest) (treasury.ToleranceResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(treasury.ToleranceResult), args.Error(1)
}

type mockPostingService struct{ mock.Mock }

func (m *mockPostingService) result(args mock.Arguments) (*documentapp.DocumentResult, error) {
	if v := args.Get(0); v != nil {
		return v.(*documentapp.DocumentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPostingService) Confirm(ctx context.Context, companyID, documentID uuid.UUID) (*documentapp.DocumentResult, error) {
	return m.result(m.Called(ctx, companyID, documentID))
}

func (m *mockPostingService) Post(ctx context.Context, companyID, documentID uuid.UUID) (*documentapp.DocumentResult, error) {
	return m.result(m.Called(ctx, companyID, documentID))
}

func (m *mockPostingService) Cancel(ctx context.Context, companyID, documentID uuid.UUID, reason string) (*documentapp.DocumentResult, error) {
	return m.result(m.Called(ctx, companyID, documentID, reason))
}

func (m *mockPostingService) Delete(ctx context.Context, companyID, documentID uuid.UUID) error {
	return m.Called(ctx, companyID, documentID).Error(0)
}

type mockVerificationService struct{ mock.Mock }

func (m *mockVerificationService) VerifyChain(ctx context.Context, companyID uuid.UUID, chainType fiscal.ChainType) (*fiscalapp.ChainVerification, error) {
	args := m.Called(ctx, companyID, chainType)
	if v := args.Get(0); v != nil {
		return v.(*fiscalapp.ChainVerification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationService) VerifyDocument(ctx context.Context, companyID, documentID uuid.UUID) (*fiscalapp.DocumentVerification, error) {
	args := m.Called(ctx, companyID, documentID)
	if v := args.Get(0); v != nil {
		return v.(*fiscalapp.DocumentVerification), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCountingService struct{ mock.Mock }

func (m *mockCountingService) counting(args mock.Arguments) (*inventory.InventoryCounting, error) {
	if v := args.Get(0); v != nil {
		return v.(*inventory.InventoryCounting), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCountingService) item(args mock.Arguments) (*inventory.CountingItem, error) {
	if v := args.Get(0); v != nil {
		return v.(*inventory.CountingItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCountingService) CreateCounting(ctx context.Context, req inventoryapp.CreateCountingRequest) (*inventoryapp.CountingResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*inventoryapp.CountingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCountingService) GetCounting(ctx context.Context, companyID, countingID uuid.UUID) (*inventoryapp.CountingResult, error) {
	args := m.Called(ctx, companyID, countingID)
	if v := args.Get(0); v != nil {
		return v.(*inventoryapp.CountingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCountingService) Start(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return m.counting(m.Called(ctx, companyID, countingID))
}

func (m *mockCountingService) CloseRound(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return m.counting(m.Called(ctx, companyID, countingID))
}

func (m *mockCountingService) RequestThirdCount(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return m.counting(m.Called(ctx, companyID, countingID))
}

func (m *mockCountingService) Cancel(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return m.counting(m.Called(ctx, companyID, countingID))
}

func (m *mockCountingService) Finalize(ctx context.Context, companyID, countingID uuid.UUID) (*inventory.InventoryCounting, error) {
	return m.counting(m.Called(ctx, companyID, countingID))
}

func (m *mockCountingService) SubmitCount(ctx context.Context, req inventoryapp.SubmitCountRequest) (*inventory.CountingItem, error) {
	return m.item(m.Called(ctx, req))
}

func (m *mockCountingService) OverrideItem(ctx context.Context, req inventoryapp.OverrideItemRequest) (*inventory.CountingItem, error) {
	return m.item(m.Called(ctx, req))
}

func (m *mockCountingService) ReconcileCounting(ctx context.Context, companyID, countingID uuid.UUID) (*inventoryapp.ReconcileResult, error) {
	args := m.Called(ctx, companyID, countingID)
	if v := args.Get(0); v != nil {
		return v.(*inventoryapp.ReconcileResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ AllocationService   = (*mockAllocationService)(nil)
	_ ToleranceService    = (*mockToleranceService)(nil)
	_ PostingService      = (*mockPostingService)(nil)
	_ VerificationService = (*mockVerificationService)(nil)
	_ CountingService     = (*mockCountingService)(nil)
)
