package entity

import (
	"time"

	"ai-text-editor-be/pkg/proposal"

	"github.com/google/uuid"
)

type EditSession struct {
	Id                  uuid.UUID
	UserId              uuid.UUID
	Title               string
	FileName            string
	Document            string
	Revision            int
	PendingProposal     *proposal.Proposal
	PendingFromFeedback bool
	FeedbackMode        bool
	LastError           string
	CreatedAt           time.Time
	UpdatedAt           *time.Time
	DeletedAt           *time.Time
	IsDeleted           bool
}
