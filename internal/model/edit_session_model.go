package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EditSession struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId              uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Title               string         `gorm:"type:text;not null"`
	FileName            string         `gorm:"type:text"`
	Document            string         `gorm:"type:text;not null;default:''"`
	Revision            int            `gorm:"not null;default:0"`
	PendingProposal     datatypes.JSON
	PendingFromFeedback bool           `gorm:"not null;default:false"`
	FeedbackMode        bool           `gorm:"not null;default:false"`
	LastError           string         `gorm:"type:text"`
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (EditSession) TableName() string {
	return "edit_sessions"
}
