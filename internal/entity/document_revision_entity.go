package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RevisionSourceLoad       = "load"
	RevisionSourceApply      = "apply"
	RevisionSourceManualEdit = "manual_edit"
)

// DocumentRevision is a snapshot of a session document after a change.
type DocumentRevision struct {
	Id            uuid.UUID
	EditSessionId uuid.UUID
	UserId        uuid.UUID
	Revision      int
	Source        string
	ProposalKind  string
	Content       string
	CreatedAt     time.Time
}
