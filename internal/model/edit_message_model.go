package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EditMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	EditSessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Position      int            `gorm:"not null"`
	Role          string         `gorm:"type:varchar(16);not null"`
	Type          string         `gorm:"type:varchar(16);not null"`
	Content       string         `gorm:"type:text"`
	Proposal      datatypes.JSON
	IsFeedback    bool           `gorm:"not null;default:false"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (EditMessage) TableName() string {
	return "edit_messages"
}
