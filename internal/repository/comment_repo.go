package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ratestuff.app/backend/internal/model"
)

type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	Create(ctx context.Context, comment *model.Comment) error
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]model.Comment, error)

	// DistinctReviewerCount counts distinct users who left a rated comment
	// on the item, excluding the item's owner.
	DistinctReviewerCount(ctx context.Context, itemID, ownerID uuid.UUID) (int64, error)

	// CountReviewsGiven counts rated comments the user left on items they
	// do not own.
	CountReviewsGiven(ctx context.Context, userID uuid.UUID) (int64, error)

	SetVote(ctx context.Context, vote *model.CommentVote) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	if tx == nil {
		return r
	}
	return &commentRepository{db: tx}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) Update(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Comment{}, "id = ?", id).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) DistinctReviewerCount(ctx context.Context, itemID, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("item_id = ? AND rating > 0 AND user_id <> ?", itemID, ownerID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *commentRepository) CountReviewsGiven(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Joins("JOIN items ON items.id = comments.item_id").
		Where("comments.user_id = ? AND comments.rating > 0 AND items.owner_id <> ?", userID, userID).
		Count(&count).Error
	return count, err
}

func (r *commentRepository) SetVote(ctx context.Context, vote *model.CommentVote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "comment_id"},
				{Name: "user_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"dir"}),
		}).
		Create(vote).Error
}
