package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/garage-erp/backend/internal/application/transaction"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowLockingSQL(t *testing.T) {
	ctx := context.Background()
	companyID, partnerID, id := uuid.New(), uuid.New(), uuid.New()

	t.Run("document lookup locks the row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE company_id = \$1 AND id = \$2 ORDER BY "documents"\."id" LIMIT \$3 FOR UPDATE`).
			WithArgs(companyID, id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "partner_id", "type", "number", "total", "currency", "status", "version"}).
				AddRow(id.String(), companyID.String(), partnerID.String(), "invoice", "F-1", "120.00", "EUR", "confirmed", 3))

		doc, err := NewGormDocumentRepository(db.DB).FindByIDForUpdate(ctx, companyID, id)
		require.NoError(t, err)
		assert.Equal(t, "F-1", doc.Number)
		assert.Equal(t, 3, doc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open invoices are locked in id order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE .*status IN \(\$4,\$5\) AND balance_due > 0 ORDER BY id FOR UPDATE`).
			WithArgs(companyID, partnerID, "invoice", "posted", "paid").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		docs, err := NewGormDocumentRepository(db.DB).FindOpenInvoicesForUpdate(ctx, companyID, partnerID)
		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chain head is read newest first under lock", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "fiscal_chain_entries" WHERE company_id = \$1 AND chain_type = \$2 ORDER BY sequence_number DESC LIMIT \$3 FOR UPDATE`).
			WithArgs(companyID, "invoice", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		last, err := NewGormFiscalChainRepository(db.DB).LastForUpdate(ctx, fiscal.ChainKey{CompanyID: companyID, ChainType: fiscal.ChainTypeInvoice})
		require.NoError(t, err)
		assert.Nil(t, last)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment lookup locks the row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE company_id = \$1 AND id = \$2 ORDER BY "payments"\."id" LIMIT \$3 FOR UPDATE`).
			WithArgs(companyID, id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "partner_id", "amount", "currency", "status", "version"}).
				AddRow(id.String(), companyID.String(), partnerID.String(), "50.0000", "EUR", "pending", 1))

		payment, err := NewGormPaymentRepository(db.DB).FindByIDForUpdate(ctx, companyID, id)
		require.NoError(t, err)
		assert.Equal(t, "50.0000", payment.Amount.StringFixed(4))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		called := false
		err := NewGormTransactionScope(db.DB).Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			called = true
			assert.NotNil(t, repos.Documents())
			assert.NotNil(t, repos.Payments())
			assert.NotNil(t, repos.Allocations())
			assert.NotNil(t, repos.FiscalChain())
			assert.NotNil(t, repos.Countings())
			assert.NotNil(t, repos.Events())
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := NewGormTransactionScope(db.DB).Execute(ctx, func(context.Context, transaction.Repositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
