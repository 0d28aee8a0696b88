package unitofwork

import (
	"context"

	"ai-text-editor-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	EditSessionRepository() contract.EditSessionRepository
	EditMessageRepository() contract.EditMessageRepository
	DocumentRevisionRepository() contract.DocumentRevisionRepository
}
