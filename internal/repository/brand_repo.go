package repository

import (
	"context"

	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
)

type BrandRepository interface {
	WithTx(tx *gorm.DB) BrandRepository
	Create(ctx context.Context, brand *model.BrandAccount) error
	FindBySlug(ctx context.Context, slug string) (*model.BrandAccount, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]model.BrandAccount, error)
}

type brandRepository struct {
	db *gorm.DB
}

func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) WithTx(tx *gorm.DB) BrandRepository {
	if tx == nil {
		return r
	}
	return &brandRepository{db: tx}
}

func (r *brandRepository) Create(ctx context.Context, brand *model.BrandAccount) error {
	return r.db.WithContext(ctx).Create(brand).Error
}

func (r *brandRepository) FindBySlug(ctx context.Context, slug string) (*model.BrandAccount, error) {
	var brand model.BrandAccount
	if err := r.db.WithContext(ctx).First(&brand, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *brandRepository) FindBySlugs(ctx context.Context, slugs []string) ([]model.BrandAccount, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var brands []model.BrandAccount
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&brands).Error
	return brands, err
}
