package implementation

import (
	"context"
	"errors"

	"ai-text-editor-be/internal/entity"
	"ai-text-editor-be/internal/mapper"
	"ai-text-editor-be/internal/model"
	"ai-text-editor-be/internal/repository/contract"
	"ai-text-editor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EditSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EditMapper
}

func NewEditSessionRepository(db *gorm.DB) contract.EditSessionRepository {
	return &EditSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewEditMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EditSessionRepositoryImpl) Create(ctx context.Context, session *entity.EditSession) error {
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	m := r.mapper.EditSessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.EditSessionToEntity(m)
	return nil
}

func (r *EditSessionRepositoryImpl) Update(ctx context.Context, session *entity.EditSession) error {
	m := r.mapper.EditSessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.EditSessionToEntity(m)
	return nil
}

func (r *EditSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.EditSession{}, "id = ?", id).Error
}

func (r *EditSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EditSession, error) {
	var m model.EditSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.EditSessionToEntity(&m), nil
}

func (r *EditSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EditSession, error) {
	var models []*model.EditSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.EditSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.EditSessionToEntity(m)
	}
	return entities, nil
}

func (r *EditSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.EditSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
