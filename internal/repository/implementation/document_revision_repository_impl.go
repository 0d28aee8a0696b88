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

type DocumentRevisionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EditMapper
}

func NewDocumentRevisionRepository(db *gorm.DB) contract.DocumentRevisionRepository {
	return &DocumentRevisionRepositoryImpl{
		db:     db,
		mapper: mapper.NewEditMapper(),
	}
}

func (r *DocumentRevisionRepositoryImpl) Create(ctx context.Context, revision *entity.DocumentRevision) error {
	if revision.Id == uuid.Nil {
		revision.Id = uuid.New()
	}
	m := r.mapper.RevisionToModel(revision)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*revision = *r.mapper.RevisionToEntity(m)
	return nil
}

func (r *DocumentRevisionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentRevision, error) {
	var m model.DocumentRevision
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RevisionToEntity(&m), nil
}

func (r *DocumentRevisionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentRevision, error) {
	var models []*model.DocumentRevision
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.DocumentRevision, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RevisionToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRevisionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.DocumentRevision{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
