package entity

import (
	"time"

	"ai-text-editor-be/pkg/proposal"

	"github.com/google/uuid"
)

type EditMessage struct {
	Id            uuid.UUID
	EditSessionId uuid.UUID
	Position      int
	Role          string
	Type          string
	Content       string
	Proposal      *proposal.Proposal
	IsFeedback    bool
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
