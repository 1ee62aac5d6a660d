package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	docapp "github.com/garage-erp/backend/internal/application/document"
	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/infrastructure/lock"
	"github.com/garage-erp/backend/internal/infrastructure/persistence"
)

// seedConfirmedDocument stores a confirmed document ready for posting
func seedConfirmedDocument(t *testing.T, tdb *TestDB, companyID, partnerID uuid.UUID, docType document.Type, number, total string) *document.Document {
	t.Helper()
	doc, err := document.NewDocument(companyID, partnerID, docType, number,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, valueobject.MustMoney(total, valueobject.EUR))
	require.NoError(t, err)
	require.NoError(t, doc.Confirm())
	require.NoError(t, persistence.NewGormDocumentRepository(tdb.DB).Save(context.Background(), doc))
	return doc
}

// seedCreditNote stores a confirmed credit note against sourceID
func seedCreditNote(t *testing.T, tdb *TestDB, companyID, partnerID, sourceID uuid.UUID, number, total string) *document.Document {
	t.Helper()
	doc, err := document.NewDocument(companyID, partnerID, document.TypeCreditNote, number,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), nil, valueobject.MustMoney(total, valueobject.EUR))
	require.NoError(t, err)
	doc.SourceDocumentID = &sourceID
	require.NoError(t, doc.Confirm())
	require.NoError(t, persistence.NewGormDocumentRepository(tdb.DB).Save(context.Background(), doc))
	return doc
}

func newPostingService(tdb *TestDB) *docapp.PostingService {
	locker := lock.NewAdvisoryLocker(tdb.DB, lock.Options{
		AcquireTimeout: 30 * time.Second,
		Logger:         zap.NewNop(),
	})
	return docapp.NewPostingService(persistence.NewGormTransactionScope(tdb.DB), locker, nil, zap.NewNop())
}
