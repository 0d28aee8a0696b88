package service

import (
	"context"

	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/proposal"
)

// IEditService proposes an edit without any server-side session.
type IEditService interface {
	Propose(ctx context.Context, req *dto.EditRequest) proposal.Proposal
}

type editService struct {
	gateway gateway.Gateway
}

func NewEditService(gw gateway.Gateway) IEditService {
	return &editService{gateway: gw}
}

func (s *editService) Propose(ctx context.Context, req *dto.EditRequest) proposal.Proposal {
	gwReq := gateway.Request{
		CurrentDocument:   deref(req.CurrentFileContent),
		LatestInstruction: deref(req.LatestUserContent),
		History:           req.History,
		PreviousProposal:  req.PreviousProposal,
	}
	if req.IsFeedback != nil {
		gwReq.IsFeedback = *req.IsFeedback
	}
	return s.gateway.Propose(ctx, gwReq)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
