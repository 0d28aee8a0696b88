package contract

import (
	"context"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/repository/specification"
)

type DocumentRevisionRepository interface {
	Create(ctx context.Context, revision *entity.DocumentRevision) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentRevision, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentRevision, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
