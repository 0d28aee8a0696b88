package state

import (
	"errors"
	"fmt"
	"strings"

	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/editing/message"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrNoPendingProposal = errors.New("no pending proposal")
	ErrStaleResponse     = errors.New("response computed against an outdated document")
	ErrEmptyInstruction  = errors.New("instruction is empty")
)

// Manager owns every session transition. Callers hand it a session they
// exclusively hold (usually a clone) and persist the result afterwards.
type Manager struct {
	applier  *proposal.Applier
	messages *message.Factory
	logger   logger.ILogger
}

func NewManager(applier *proposal.Applier, messages *message.Factory, log logger.ILogger) *Manager {
	if applier == nil {
		applier = proposal.NewApplier()
	}
	return &Manager{applier: applier, messages: messages, logger: log}
}

// LoadDocument replaces the document and resets history, proposal and
// feedback state.
func (m *Manager) LoadDocument(s *store.Session, fileName, text string) {
	s.Document = text
	s.FileName = fileName
	s.Revision++
	s.History = nil
	s.FeedbackMessageIDs = make(map[uuid.UUID]struct{})
	m.clearPending(s)
	s.LastError = ""

	label := fileName
	if label == "" {
		label = "pasted text"
	}
	s.History = append(s.History, m.messages.SystemInfo(fmt.Sprintf("Loaded %s (%d characters).", label, len([]rune(text)))))

	m.logger.Info("STATE", "Document loaded", map[string]interface{}{
		"session_id": s.ID,
		"file_name":  fileName,
		"revision":   s.Revision,
	})
}

// StartFeedback marks the next outgoing message as feedback on the pending
// proposal.
func (m *Manager) StartFeedback(s *store.Session) error {
	if s.Pending == nil {
		return ErrNoPendingProposal
	}
	s.FeedbackMode = true
	return nil
}

func (m *Manager) CancelFeedback(s *store.Session) {
	s.FeedbackMode = false
}

// Outgoing is a message on its way to the gateway.
type Outgoing struct {
	Request  gateway.Request
	Message  store.Message
	Revision int
}

// BeginSend appends the user message and builds the gateway request. The
// history in the request excludes system notes and the message just sent.
// A fresh instruction drops any pending proposal; feedback keeps it and
// sends it along.
func (m *Manager) BeginSend(s *store.Session, text string) (Outgoing, error) {
	if strings.TrimSpace(text) == "" {
		return Outgoing{}, ErrEmptyInstruction
	}

	isFeedback := s.FeedbackMode && s.Pending != nil
	req := gateway.Request{
		CurrentDocument:   s.Document,
		LatestInstruction: text,
		History:           GatewayHistory(s.History),
		IsFeedback:        isFeedback,
	}
	if isFeedback {
		prev := *s.Pending
		req.PreviousProposal = &prev
	} else {
		m.clearPending(s)
	}

	msg := m.messages.UserMessage(text, isFeedback)
	s.History = append(s.History, msg)
	if isFeedback {
		if s.FeedbackMessageIDs == nil {
			s.FeedbackMessageIDs = make(map[uuid.UUID]struct{})
		}
		s.FeedbackMessageIDs[msg.ID] = struct{}{}
	}
	s.FeedbackMode = false

	return Outgoing{Request: req, Message: msg, Revision: s.Revision}, nil
}

// ReceiveProposal records the gateway answer for out. A mutating proposal
// becomes pending unless it is malformed; anything else clears the pending
// slot.
func (m *Manager) ReceiveProposal(s *store.Session, out Outgoing, p proposal.Proposal) (store.Message, error) {
	if s.Revision != out.Revision {
		m.logger.Warn("STATE", "Discarding stale proposal", map[string]interface{}{
			"session_id":   s.ID,
			"revision":     s.Revision,
			"request_from": out.Revision,
			"kind":         p.Kind,
		})
		return store.Message{}, ErrStaleResponse
	}

	// malformed edits are recorded as failures, never as pending
	if p.Mutating() {
		if err := p.Validate(); err != nil {
			m.logger.Warn("STATE", "Malformed proposal recorded as failed", map[string]interface{}{
				"session_id": s.ID,
				"kind":       p.Kind,
				"error":      err.Error(),
			})
			p = proposal.NewFailed(err.Error())
		}
	}

	msg := m.messages.AssistantMessage(p)
	s.History = append(s.History, msg)

	if p.Mutating() {
		cp := p
		s.Pending = &cp
		s.PendingFromFeedback = out.Request.IsFeedback
	} else {
		m.clearPending(s)
	}
	if p.Kind == proposal.KindFailed {
		s.LastError = p.Message
	}
	return msg, nil
}

// ApplyPending validates the pending proposal against the document and
// swaps in the result. On failure the document and the pending proposal are
// kept and an error entry is added (once per distinct message).
func (m *Manager) ApplyPending(s *store.Session) (*proposal.Result, error) {
	if s.Pending == nil {
		return nil, ErrNoPendingProposal
	}

	result, err := m.applier.Apply(s.Document, *s.Pending, s.PendingFromFeedback)
	if err != nil {
		s.LastError = err.Error()
		if last, ok := s.LastMessage(); !ok || last.Type != store.TypeError || last.Content != err.Error() {
			s.History = append(s.History, m.messages.SystemError(err.Error()))
		}
		m.logger.Warn("STATE", "Proposal rejected by validation", map[string]interface{}{
			"session_id": s.ID,
			"kind":       s.Pending.Kind,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.Document = result.Document
	s.Revision++
	s.LastError = ""
	m.clearPending(s)

	note := result.Summary
	if n := result.Recovered(); n > 0 {
		note += fmt.Sprintf(" %d fragment(s) matched after ignoring decorative characters.", n)
	}
	s.History = append(s.History, m.messages.SystemInfo(note))

	m.logger.Info("STATE", "Proposal applied", map[string]interface{}{
		"session_id": s.ID,
		"kind":       result.Kind,
		"edits":      len(result.Edits),
		"recovered":  result.Recovered(),
		"revision":   s.Revision,
	})
	return result, nil
}

// PreviewPending dry-runs the pending proposal. The session is not touched.
func (m *Manager) PreviewPending(s *store.Session) (*proposal.Result, error) {
	if s.Pending == nil {
		return nil, ErrNoPendingProposal
	}
	return m.applier.Apply(s.Document, *s.Pending, s.PendingFromFeedback)
}

// RejectPending discards the pending proposal.
func (m *Manager) RejectPending(s *store.Session) (proposal.Kind, error) {
	if s.Pending == nil {
		return "", ErrNoPendingProposal
	}
	kind := s.Pending.Kind
	m.clearPending(s)
	s.History = append(s.History, m.messages.SystemInfo(fmt.Sprintf("Rejected proposal (%s).", kind.Label())))
	return kind, nil
}

// ManualEdit replaces the document unconditionally. A pending proposal no
// longer matches the edited text and is dropped.
func (m *Manager) ManualEdit(s *store.Session, text string) {
	hadPending := s.Pending != nil
	s.Document = text
	s.Revision++
	m.clearPending(s)

	note := "Document edited manually."
	if hadPending {
		note += " The pending proposal was discarded."
	}
	s.History = append(s.History, m.messages.SystemInfo(note))
}

func (m *Manager) clearPending(s *store.Session) {
	s.Pending = nil
	s.PendingFromFeedback = false
	s.FeedbackMode = false
}

// GatewayHistory projects session history onto the turns sent to the model.
// Informational entries are dropped; apply errors go out as system turns.
func GatewayHistory(history []store.Message) []gateway.HistoryEntry {
	entries := make([]gateway.HistoryEntry, 0, len(history))
	for _, msg := range history {
		if msg.Type == store.TypeSystemInfo {
			continue
		}
		entries = append(entries, gateway.HistoryEntry{Role: string(msg.Role), Content: msg.Content})
	}
	return entries
}
