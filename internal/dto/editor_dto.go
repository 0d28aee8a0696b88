package dto

import (
	"time"

	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/textdiff"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title    string  `json:"title" validate:"max=200"`
	FileName string  `json:"file_name" validate:"max=255"`
	Document *string `json:"document"`
}

type LoadDocumentRequest struct {
	FileName string `json:"file_name" validate:"max=255"`
	Content  string `json:"content"`
}

type ManualEditRequest struct {
	Content string `json:"content"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type SessionSummaryResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	FileName   string     `json:"file_name"`
	Revision   int        `json:"revision"`
	HasPending bool       `json:"has_pending"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type SessionResponse struct {
	Id                  uuid.UUID          `json:"id"`
	Title               string             `json:"title"`
	FileName            string             `json:"file_name"`
	Document            string             `json:"document"`
	Revision            int                `json:"revision"`
	PendingProposal     *proposal.Proposal `json:"pending_proposal"`
	PendingLabel        string             `json:"pending_label,omitempty"`
	PendingFromFeedback bool               `json:"pending_from_feedback"`
	FeedbackMode        bool               `json:"feedback_mode"`
	LastError           string             `json:"last_error,omitempty"`
	Warnings            []string           `json:"warnings,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type MessageResponse struct {
	Id         uuid.UUID          `json:"id"`
	Role       string             `json:"role"`
	Type       string             `json:"type"`
	Content    string             `json:"content"`
	Proposal   *proposal.Proposal `json:"proposal,omitempty"`
	IsFeedback bool               `json:"is_feedback"`
	CreatedAt  time.Time          `json:"created_at"`
}

type SendMessageResponse struct {
	UserMessage      MessageResponse  `json:"user_message"`
	AssistantMessage MessageResponse  `json:"assistant_message"`
	Session          *SessionResponse `json:"session"`
}

type PreviewResponse struct {
	Kind      proposal.Kind   `json:"kind"`
	Label     string          `json:"label"`
	Summary   string          `json:"summary"`
	Valid     bool            `json:"valid"`
	Problems  []string        `json:"problems,omitempty"`
	Hunks     []textdiff.Hunk `json:"hunks,omitempty"`
	Stats     textdiff.Stats  `json:"stats"`
	Truncated bool            `json:"truncated"`
	Recovered int             `json:"recovered"`
}

type ApplyResponse struct {
	Kind      proposal.Kind    `json:"kind"`
	Summary   string           `json:"summary"`
	Edits     int              `json:"edits"`
	Recovered int              `json:"recovered"`
	Session   *SessionResponse `json:"session"`
}

type RevisionResponse struct {
	Revision     int       `json:"revision"`
	Source       string    `json:"source"`
	ProposalKind string    `json:"proposal_kind,omitempty"`
	Length       int       `json:"length"`
	CreatedAt    time.Time `json:"created_at"`
}

// EditRequest is the stateless proposal request. Keys follow the wire
// format of the hosted edit function.
type EditRequest struct {
	CurrentFileContent *string                `json:"current_file_content" validate:"required"`
	LatestUserContent  *string                `json:"latest_user_content" validate:"required"`
	History            []gateway.HistoryEntry `json:"history" validate:"required,dive"`
	IsFeedback         *bool                  `json:"is_feedback" validate:"required"`
	PreviousProposal   *proposal.Proposal     `json:"previous_proposal"`
}

// PublishRevisionMessage is the payload on the revision topic.
type PublishRevisionMessage struct {
	EditSessionId uuid.UUID `json:"edit_session_id"`
	UserId        uuid.UUID `json:"user_id"`
	Revision      int       `json:"revision"`
	Source        string    `json:"source"`
	ProposalKind  string    `json:"proposal_kind,omitempty"`
	Content       string    `json:"content"`
}
