package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ratestuff.app/backend/internal/model"
)

type MentionRepository interface {
	WithTx(tx *gorm.DB) MentionRepository

	// Upsert creates the mention, or refreshes snippet/actor on the existing
	// row for the same (brand, item, comment) target.
	Upsert(ctx context.Context, mention *model.Mention) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.Mention, error)
	ListForBrand(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]model.Mention, error)
	Hide(ctx context.Context, id, hiddenBy uuid.UUID) error
}

type mentionRepository struct {
	db *gorm.DB
}

func NewMentionRepository(db *gorm.DB) MentionRepository {
	return &mentionRepository{db: db}
}

func (r *mentionRepository) WithTx(tx *gorm.DB) MentionRepository {
	if tx == nil {
		return r
	}
	return &mentionRepository{db: tx}
}

func (r *mentionRepository) Upsert(ctx context.Context, mention *model.Mention) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "brand_id"},
				{Name: "item_id"},
				{Name: "comment_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"snippet", "actor_id", "updated_at"}),
		}).
		Create(mention).Error
}

func (r *mentionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Mention, error) {
	var mention model.Mention
	if err := r.db.WithContext(ctx).First(&mention, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &mention, nil
}

func (r *mentionRepository) ListForBrand(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]model.Mention, error) {
	var mentions []model.Mention
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND hidden_at IS NULL", brandID).
		Order("updated_at desc").
		Limit(limit).
		Offset(offset).
		Preload("Actor", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Find(&mentions).Error
	return mentions, err
}

func (r *mentionRepository) Hide(ctx context.Context, id, hiddenBy uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Mention{}).
		Where("id = ? AND hidden_at IS NULL", id).
		Updates(map[string]interface{}{
			"hidden_at":    now,
			"hidden_by_id": hiddenBy,
		}).Error
}
