package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByEditSessionID struct {
	EditSessionID uuid.UUID
}

func (s ByEditSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("edit_session_id = ?", s.EditSessionID)
}

type ByRevision struct {
	Revision int
}

func (s ByRevision) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("revision = ?", s.Revision)
}
