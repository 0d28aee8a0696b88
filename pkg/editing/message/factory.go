package message

import (
	"context"
	"encoding/json"
	"time"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/repository/unitofwork"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/store"

	"github.com/google/uuid"
)

// Factory creates history entries and persists them.
type Factory struct {
	now func() time.Time
}

func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

func (f *Factory) UserMessage(content string, isFeedback bool) store.Message {
	return store.Message{
		ID:         uuid.New(),
		Role:       store.RoleUser,
		Type:       store.TypeNormal,
		Content:    content,
		IsFeedback: isFeedback,
		CreatedAt:  f.now(),
	}
}

// AssistantMessage records a gateway response. Mutating proposals are stored
// as proposal entries carrying the canonical JSON; failures as errors.
func (f *Factory) AssistantMessage(p proposal.Proposal) store.Message {
	msg := store.Message{
		ID:        uuid.New(),
		Role:      store.RoleAssistant,
		Type:      store.TypeNormal,
		Content:   p.Message,
		CreatedAt: f.now(),
	}
	switch {
	case p.Mutating():
		cp := p
		msg.Type = store.TypeProposal
		msg.Proposal = &cp
		if data, err := json.Marshal(p); err == nil {
			msg.Content = string(data)
		}
	case p.Kind == proposal.KindFailed:
		msg.Type = store.TypeError
	}
	return msg
}

func (f *Factory) SystemInfo(content string) store.Message {
	return store.Message{
		ID:        uuid.New(),
		Role:      store.RoleSystem,
		Type:      store.TypeSystemInfo,
		Content:   content,
		CreatedAt: f.now(),
	}
}

func (f *Factory) SystemError(content string) store.Message {
	return store.Message{
		ID:        uuid.New(),
		Role:      store.RoleSystem,
		Type:      store.TypeError,
		Content:   content,
		CreatedAt: f.now(),
	}
}

// ToEntity maps a history entry onto its persisted form. position orders
// entries within a session.
func (f *Factory) ToEntity(sessionID uuid.UUID, position int, msg store.Message) *entity.EditMessage {
	return &entity.EditMessage{
		Id:            msg.ID,
		EditSessionId: sessionID,
		Position:      position,
		Role:          string(msg.Role),
		Type:          string(msg.Type),
		Content:       msg.Content,
		Proposal:      msg.Proposal,
		IsFeedback:    msg.IsFeedback,
		CreatedAt:     msg.CreatedAt,
	}
}

func (f *Factory) FromEntity(e *entity.EditMessage) store.Message {
	return store.Message{
		ID:         e.Id,
		Role:       store.MessageRole(e.Role),
		Type:       store.MessageType(e.Type),
		Content:    e.Content,
		Proposal:   e.Proposal,
		IsFeedback: e.IsFeedback,
		CreatedAt:  e.CreatedAt,
	}
}

// SaveMessages persists the entries appended after the first `from` history
// positions.
func (f *Factory) SaveMessages(ctx context.Context, uow unitofwork.UnitOfWork, sessionID uuid.UUID, history []store.Message, from int) error {
	for i := from; i < len(history); i++ {
		if err := uow.EditMessageRepository().Create(ctx, f.ToEntity(sessionID, i, history[i])); err != nil {
			return err
		}
	}
	return nil
}
