package contract

import (
	"context"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type EditSessionRepository interface {
	Create(ctx context.Context, session *entity.EditSession) error
	Update(ctx context.Context, session *entity.EditSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EditSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EditSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
