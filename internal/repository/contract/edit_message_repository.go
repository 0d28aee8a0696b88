package contract

import (
	"context"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type EditMessageRepository interface {
	Create(ctx context.Context, message *entity.EditMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EditMessage, error)
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
