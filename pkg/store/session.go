package store

import (
	"maps"
	"slices"
	"time"

	"ai-text-editor-be/pkg/proposal"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

type MessageType string

const (
	TypeNormal     MessageType = "normal"
	TypeProposal   MessageType = "proposal"
	TypeError      MessageType = "error"
	TypeSystemInfo MessageType = "system_info"
)

// Message is one entry of the conversation history.
type Message struct {
	ID         uuid.UUID          `json:"id"`
	Role       MessageRole        `json:"role"`
	Type       MessageType        `json:"type"`
	Content    string             `json:"content"`
	Proposal   *proposal.Proposal `json:"proposal,omitempty"`
	IsFeedback bool               `json:"is_feedback"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Session is the live state of one editing session
type Session struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`

	// Document is replaced wholesale, never patched in place.
	Document string `json:"document"`
	// Revision increases on every document change. Responses computed
	// against an older revision are discarded.
	Revision int `json:"revision"`

	History []Message `json:"history"`

	// Pending is the most recent unresolved mutating proposal.
	Pending *proposal.Proposal `json:"pending,omitempty"`
	// PendingFromFeedback marks a pending proposal produced by a feedback
	// round; it enables relaxed fragment matching on apply.
	PendingFromFeedback bool `json:"pending_from_feedback"`

	FeedbackMode       bool                   `json:"feedback_mode"`
	FeedbackMessageIDs map[uuid.UUID]struct{} `json:"-"`

	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id, userID string) *Session {
	return &Session{
		ID:                 id,
		UserID:             userID,
		FeedbackMessageIDs: make(map[uuid.UUID]struct{}),
	}
}

// HasPending reports whether a mutating proposal awaits a decision.
func (s *Session) HasPending() bool {
	return s.Pending != nil
}

// IsFeedbackMessage reports whether the history entry id was sent as
// feedback on a previous proposal.
func (s *Session) IsFeedbackMessage(id uuid.UUID) bool {
	_, ok := s.FeedbackMessageIDs[id]
	return ok
}

// LastMessage returns the newest history entry, if any.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a deep copy. Proposals are immutable values and are
// shared.
func (s *Session) Clone() *Session {
	cp := *s
	cp.History = slices.Clone(s.History)
	cp.FeedbackMessageIDs = maps.Clone(s.FeedbackMessageIDs)
	if cp.FeedbackMessageIDs == nil {
		cp.FeedbackMessageIDs = make(map[uuid.UUID]struct{})
	}
	return &cp
}
