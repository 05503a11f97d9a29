package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ratestuff.app/backend/internal/model"
)

type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	Create(ctx context.Context, item *model.Item) error
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	List(ctx context.Context, limit, offset int) ([]model.Item, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)

	FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error)
	ReplaceTags(ctx context.Context, item *model.Item, tags []model.Tag) error

	// TagPeerIDs returns distinct owners of other items that share at least
	// one tag with the given item, excluding the item's own author.
	TagPeerIDs(ctx context.Context, itemID, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository {
	if tx == nil {
		return r
	}
	return &itemRepository{db: tx}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id).Error
}

func (r *itemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("Owner", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, limit, offset int) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}

func (r *itemRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

func (r *itemRepository) FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag := model.Tag{Name: name}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&tag).Error
		if err != nil {
			return nil, err
		}
		// DoNothing leaves the struct without an ID on conflict, re-fetch
		if err := r.db.WithContext(ctx).First(&tag, "name = ?", name).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *itemRepository) ReplaceTags(ctx context.Context, item *model.Item, tags []model.Tag) error {
	return r.db.WithContext(ctx).Model(item).Association("Tags").Replace(tags)
}

func (r *itemRepository) TagPeerIDs(ctx context.Context, itemID, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var peerIDs []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT i.owner_id
		FROM items i
		JOIN item_tags it ON it.item_id = i.id
		WHERE it.tag_id IN (SELECT tag_id FROM item_tags WHERE item_id = ?)
		  AND i.id <> ?
		  AND i.owner_id <> ?`,
		itemID, itemID, ownerID,
	).Scan(&peerIDs).Error
	return peerIDs, err
}
