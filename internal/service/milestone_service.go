package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
)

// Milestone kinds, used in the event key ms:{kind}:{subject}:{level}.
const (
	MilestoneItemReviews  = "item_reviews"
	MilestoneItemsShared  = "items_shared"
	MilestoneReviewsGiven = "reviews_given"
)

// milestoneLevels is the fixed threshold set. Firing is strictly
// edge-triggered: a recomputed total fires iff it equals a level exactly;
// an accidental double-fire at the same total is absorbed by the
// notification writer's event-key dedup.
var milestoneLevels = []int64{10, 50, 100}

type MilestoneService interface {
	// OwnerItemReviews recounts distinct reviewers on the item (excluding
	// its owner) and notifies the owner when a threshold is hit exactly.
	// Safe to call after every relevant mutation.
	OwnerItemReviews(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error

	// UserItemsShared recounts items the user created.
	UserItemsShared(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error

	// UserReviewsGiven recounts rated comments the user left on items they
	// do not own.
	UserReviewsGiven(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type milestoneService struct {
	itemRepo    repository.ItemRepository
	commentRepo repository.CommentRepository
	notifSvc    NotificationService
}

func NewMilestoneService(
	itemRepo repository.ItemRepository,
	commentRepo repository.CommentRepository,
	notifSvc NotificationService,
) MilestoneService {
	return &milestoneService{
		itemRepo:    itemRepo,
		commentRepo: commentRepo,
		notifSvc:    notifSvc,
	}
}

func (s *milestoneService) OwnerItemReviews(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	item, err := s.itemRepo.WithTx(tx).FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	count, err := s.commentRepo.WithTx(tx).DistinctReviewerCount(ctx, itemID, item.OwnerID)
	if err != nil {
		return err
	}
	level, ok := atLevel(count)
	if !ok {
		return nil
	}

	_, err = s.notifSvc.Notify(ctx, NotificationInput{
		UserID:   item.OwnerID,
		Type:     model.NotifTypeMilestone,
		Title:    fmt.Sprintf("%q reached %d reviews", item.Title, level),
		Body:     fmt.Sprintf("%d people have now reviewed your item.", level),
		Link:     fmt.Sprintf("/items/%s", item.ID),
		EventKey: fmt.Sprintf("ms:%s:%s:%d", MilestoneItemReviews, itemID, level),
		Data:     map[string]interface{}{"kind": MilestoneItemReviews, "level": level},
	})
	return err
}

func (s *milestoneService) UserItemsShared(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	count, err := s.itemRepo.WithTx(tx).CountByOwner(ctx, userID)
	if err != nil {
		return err
	}
	level, ok := atLevel(count)
	if !ok {
		return nil
	}

	_, err = s.notifSvc.Notify(ctx, NotificationInput{
		UserID:   userID,
		Type:     model.NotifTypeMilestone,
		Title:    fmt.Sprintf("You have shared %d items", level),
		Body:     fmt.Sprintf("Your %dth item just went live. Keep them coming!", level),
		Link:     "/profile/items",
		EventKey: fmt.Sprintf("ms:%s:%s:%d", MilestoneItemsShared, userID, level),
		Data:     map[string]interface{}{"kind": MilestoneItemsShared, "level": level},
	})
	return err
}

func (s *milestoneService) UserReviewsGiven(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	count, err := s.commentRepo.WithTx(tx).CountReviewsGiven(ctx, userID)
	if err != nil {
		return err
	}
	level, ok := atLevel(count)
	if !ok {
		return nil
	}

	_, err = s.notifSvc.Notify(ctx, NotificationInput{
		UserID:   userID,
		Type:     model.NotifTypeMilestone,
		Title:    fmt.Sprintf("You have written %d reviews", level),
		Body:     fmt.Sprintf("That makes %d reviews on other people's items.", level),
		Link:     "/profile/reviews",
		EventKey: fmt.Sprintf("ms:%s:%s:%d", MilestoneReviewsGiven, userID, level),
		Data:     map[string]interface{}{"kind": MilestoneReviewsGiven, "level": level},
	})
	return err
}

func atLevel(count int64) (int64, bool) {
	for _, level := range milestoneLevels {
		if count == level {
			return level, true
		}
	}
	return 0, false
}
