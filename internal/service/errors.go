package service

import (
	"errors"

	"ai-text-editor-be/pkg/editing/state"
)

var (
	ErrSessionNotFound = errors.New("edit session not found")
	ErrSessionBusy     = errors.New("an AI request is already in progress for this session")
	ErrDocumentInvalid = errors.New("document could not be read")

	// Re-exported so controllers depend on the service package only.
	ErrNoPendingProposal = state.ErrNoPendingProposal
	ErrStaleResponse     = state.ErrStaleResponse
	ErrEmptyInstruction  = state.ErrEmptyInstruction
)
