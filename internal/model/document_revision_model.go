package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentRevision struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EditSessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_revision_session_rev"`
	UserId        uuid.UUID `gorm:"type:uuid;not null;index"`
	Revision      int       `gorm:"not null;uniqueIndex:idx_revision_session_rev"`
	Source        string    `gorm:"type:varchar(32);not null"`
	ProposalKind  string    `gorm:"type:varchar(32)"`
	Content       string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (DocumentRevision) TableName() string {
	return "document_revisions"
}
