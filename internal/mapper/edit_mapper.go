package mapper

import (
	"encoding/json"
	"time"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/model"
	"ai-text-editor-be/pkg/proposal"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EditMapper struct{}

func NewEditMapper() *EditMapper {
	return &EditMapper{}
}

// Session Mappers

func (m *EditMapper) EditSessionToEntity(s *model.EditSession) *entity.EditSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.EditSession{
		Id:                  s.Id,
		UserId:              s.UserId,
		Title:               s.Title,
		FileName:            s.FileName,
		Document:            s.Document,
		Revision:            s.Revision,
		PendingProposal:     decodeProposal(s.PendingProposal),
		PendingFromFeedback: s.PendingFromFeedback,
		FeedbackMode:        s.FeedbackMode,
		LastError:           s.LastError,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
		IsDeleted:           s.DeletedAt.Valid,
	}
}

func (m *EditMapper) EditSessionToModel(s *entity.EditSession) *model.EditSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.EditSession{
		Id:                  s.Id,
		UserId:              s.UserId,
		Title:               s.Title,
		FileName:            s.FileName,
		Document:            s.Document,
		Revision:            s.Revision,
		PendingProposal:     encodeProposal(s.PendingProposal),
		PendingFromFeedback: s.PendingFromFeedback,
		FeedbackMode:        s.FeedbackMode,
		LastError:           s.LastError,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
	}
}

// Message Mappers

func (m *EditMapper) EditMessageToEntity(msg *model.EditMessage) *entity.EditMessage {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.EditMessage{
		Id:            msg.Id,
		EditSessionId: msg.EditSessionId,
		Position:      msg.Position,
		Role:          msg.Role,
		Type:          msg.Type,
		Content:       msg.Content,
		Proposal:      decodeProposal(msg.Proposal),
		IsFeedback:    msg.IsFeedback,
		CreatedAt:     msg.CreatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     msg.DeletedAt.Valid,
	}
}

func (m *EditMapper) EditMessageToModel(msg *entity.EditMessage) *model.EditMessage {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.EditMessage{
		Id:            msg.Id,
		EditSessionId: msg.EditSessionId,
		Position:      msg.Position,
		Role:          msg.Role,
		Type:          msg.Type,
		Content:       msg.Content,
		Proposal:      encodeProposal(msg.Proposal),
		IsFeedback:    msg.IsFeedback,
		CreatedAt:     msg.CreatedAt,
		DeletedAt:     deletedAt,
	}
}

// Revision Mappers

func (m *EditMapper) RevisionToEntity(r *model.DocumentRevision) *entity.DocumentRevision {
	if r == nil {
		return nil
	}
	return &entity.DocumentRevision{
		Id:            r.Id,
		EditSessionId: r.EditSessionId,
		UserId:        r.UserId,
		Revision:      r.Revision,
		Source:        r.Source,
		ProposalKind:  r.ProposalKind,
		Content:       r.Content,
		CreatedAt:     r.CreatedAt,
	}
}

func (m *EditMapper) RevisionToModel(r *entity.DocumentRevision) *model.DocumentRevision {
	if r == nil {
		return nil
	}
	return &model.DocumentRevision{
		Id:            r.Id,
		EditSessionId: r.EditSessionId,
		UserId:        r.UserId,
		Revision:      r.Revision,
		Source:        r.Source,
		ProposalKind:  r.ProposalKind,
		Content:       r.Content,
		CreatedAt:     r.CreatedAt,
	}
}

func encodeProposal(p *proposal.Proposal) datatypes.JSON {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// decodeProposal tolerates rows written by older clients; an unreadable
// payload is treated as no proposal.
func decodeProposal(data datatypes.JSON) *proposal.Proposal {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	p, err := proposal.Decode(data)
	if err != nil {
		return nil
	}
	return &p
}
