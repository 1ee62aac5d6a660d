package persistence

import (
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// saveVersioned writes an aggregate row guarded by its version column.
//
// An existing row is updated only while its stored version still equals
// version, and the row's version becomes version+1. A row that does not exist
// yet is inserted as is. The returned value is the version now stored.
// setVersion is called with the new version before the update is issued
// so the model carries it.
func saveVersioned(db *gorm.DB, model any, companyID, id uuid.UUID, version int, setVersion func(int)) (int, error) {
	setVersion(version + 1)
	res := db.Model(model).
		Where("id = ? AND company_id = ? AND version = ?", id, companyID, version).
		Select("*").
		Omit("id", "company_id", "created_at").
		Updates(model)
	if res.Error != nil {
		setVersion(version)
		return version, translateError("update", res.Error)
	}
	if res.RowsAffected == 1 {
		return version + 1, nil
	}

	setVersion(version)
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return version, translateError("count", err)
	}
	if n > 0 {
		return version, shared.ErrConcurrencyConflict
	}
	if err := db.Create(model).Error; err != nil {
		return version, translateError("insert", err)
	}
	return version, nil
}
