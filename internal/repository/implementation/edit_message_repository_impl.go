package implementation

import (
	"context"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/mapper"
	"ai-text-editor-be/internal/model"
	"ai-text-editor-be/internal/repository/contract"
	"ai-text-editor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EditMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EditMapper
}

func NewEditMessageRepository(db *gorm.DB) contract.EditMessageRepository {
	return &EditMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewEditMapper(),
	}
}

func (r *EditMessageRepositoryImpl) Create(ctx context.Context, message *entity.EditMessage) error {
	m := r.mapper.EditMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.EditMessageToEntity(m)
	return nil
}

func (r *EditMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EditMessage, error) {
	var models []*model.EditMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.EditMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.EditMessageToEntity(m)
	}
	return entities, nil
}

// DeleteBySessionId soft-deletes the whole history of a session.
func (r *EditMessageRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("edit_session_id = ?", sessionId).Delete(&model.EditMessage{}).Error
}

func (r *EditMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.EditMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
