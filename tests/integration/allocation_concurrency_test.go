package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	treasuryapp "github.com/garage-erp/backend/internal/application/treasury"
	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/persistence"
)

func newAllocationService(tdb *TestDB, system treasury.ToleranceSettings) *treasuryapp.AllocationService {
	settings := persistence.NewGormSettingsRepository(tdb.DB)
	tolerance := treasuryapp.NewToleranceService(settings, system, zap.NewNop())
	return treasuryapp.NewAllocationService(
		persistence.NewGormDocumentRepository(tdb.DB),
		settings,
		tolerance,
		persistence.NewGormTransactionScope(tdb.DB),
		nil,
		zap.NewNop(),
	)
}

func seedPayment(t *testing.T, tdb *TestDB, companyID, partnerID uuid.UUID, amount string) *treasury.Payment {
	t.Helper()
	p, err := treasury.NewPayment(companyID, partnerID, uuid.Nil, valueobject.MustMoney(amount, valueobject.EUR), time.Now())
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormPaymentRepository(tdb.DB).Save(context.Background(), p))
	return p
}

func TestConcurrentAllocation_NeverOverAllocatesInvoice(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()

	companyID := tdb.CreateCompany("PT")
	partnerID := tdb.CreatePartner(companyID)
	invoice := seedConfirmedDocument(t, tdb, companyID, partnerID, document.TypeInvoice, "FT 1", "100.00")
	_, err := newPostingService(tdb).Post(ctx, companyID, invoice.ID)
	require.NoError(t, err)

	const n = 4
	payments := make([]*treasury.Payment, n)
	for i := range payments {
		payments[i] = seedPayment(t, tdb, companyID, partnerID, "40.00")
	}

	svc := newAllocationService(tdb, treasury.ToleranceSettings{Source: treasury.ToleranceSourceSystem})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, p := range payments {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.ApplyAllocation(ctx, treasuryapp.ApplyAllocationRequest{
				CompanyID: companyID,
				PaymentID: id,
				Method:    treasury.AllocationMethodFIFO,
			})
		}(i, p.ID)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "allocation %d", i)
	}

	var allocated decimal.Decimal
	err = tdb.DB.Table("payment_allocations").
		Where("document_id = ?", invoice.ID).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&allocated)
	require.NoError(t, err)
	assert.True(t, allocated.Equal(decimal.NewFromInt(100)), "allocated %s", allocated)

	stored, err := persistence.NewGormDocumentRepository(tdb.DB).FindByID(ctx, companyID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, stored.BalanceDue.IsZero())
	assert.Equal(t, document.StatusPaid, stored.Status)

	var fullyAllocated, partial int
	for _, p := range payments {
		got, err := persistence.NewGormPaymentRepository(tdb.DB).FindByID(ctx, companyID, p.ID)
		require.NoError(t, err)
		switch got.Status {
		case treasury.PaymentStatusAllocated:
			fullyAllocated++
		case treasury.PaymentStatusPartiallyAllocated:
			partial++
		}
	}
	// 40 + 40 + 20 covers the invoice; the last payment finds nothing open
	assert.Equal(t, 2, fullyAllocated)
	assert.Equal(t, 1, partial)
	assert.Equal(t, int64(3), tdb.Count("payment_allocations", "document_id = ?", invoice.ID))
}

func TestAllocation_ToleranceWritesOffUnderpayment(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()

	companyID := tdb.CreateCompany("PT")
	partnerID := tdb.CreatePartner(companyID)
	invoice := seedConfirmedDocument(t, tdb, companyID, partnerID, document.TypeInvoice, "FT 1", "100.00")
	_, err := newPostingService(tdb).Post(ctx, companyID, invoice.ID)
	require.NoError(t, err)

	payment := seedPayment(t, tdb, companyID, partnerID, "99.70")
	svc := newAllocationService(tdb, treasury.SystemDefaultTolerance())

	res, err := svc.ApplyAllocation(ctx, treasuryapp.ApplyAllocationRequest{
		CompanyID: companyID,
		PaymentID: payment.ID,
		Method:    treasury.AllocationMethodFIFO,
	})
	require.NoError(t, err)
	require.Len(t, res.Plan.Lines, 1)
	assert.True(t, res.Plan.Lines[0].ToleranceWriteoff.Equal(decimal.RequireFromString("0.30")))

	stored, err := persistence.NewGormDocumentRepository(tdb.DB).FindByID(ctx, companyID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPaid, stored.Status)
	assert.Positive(t, tdb.Count("domain_events", "aggregate_id = ?", payment.ID))
}
