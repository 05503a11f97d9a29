package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/dto"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/pkg/apperror"
)

// cvoteBucket is the dedup window for comment vote notifications: repeated
// toggling within the same 15-minute bucket collapses to one event key.
const cvoteBucket = 15 * time.Minute

type CommentService interface {
	CreateComment(ctx context.Context, userID, itemID uuid.UUID, req dto.CreateCommentRequest) (*model.Comment, error)
	UpdateComment(ctx context.Context, actor *model.User, commentID uuid.UUID, req dto.UpdateCommentRequest) (*model.Comment, error)
	DeleteComment(ctx context.Context, actor *model.User, commentID uuid.UUID) error
	ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]model.Comment, error)
	Vote(ctx context.Context, userID, commentID uuid.UUID, dir string) error
}

type commentService struct {
	db           *gorm.DB
	commentRepo  repository.CommentRepository
	itemRepo     repository.ItemRepository
	mentionSvc   MentionService
	milestoneSvc MilestoneService
	notifSvc     NotificationService
	redisClient  *redis.Client
	rateLimit    time.Duration
}

func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	itemRepo repository.ItemRepository,
	mentionSvc MentionService,
	milestoneSvc MilestoneService,
	notifSvc NotificationService,
	redisClient *redis.Client,
	rateLimit time.Duration,
) CommentService {
	return &commentService{
		db:           db,
		commentRepo:  commentRepo,
		itemRepo:     itemRepo,
		mentionSvc:   mentionSvc,
		milestoneSvc: milestoneSvc,
		notifSvc:     notifSvc,
		redisClient:  redisClient,
		rateLimit:    rateLimit,
	}
}

func (s *commentService) CreateComment(ctx context.Context, userID, itemID uuid.UUID, req dto.CreateCommentRequest) (*model.Comment, error) {
	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, userID, "comment", s.rateLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, RateLimitRetryError(ctx, s.redisClient, userID, "comment")
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	comment := &model.Comment{
		ItemID: itemID,
		UserID: userID,
		Body:   req.Body,
		Rating: req.Rating,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.mentionSvc.HandleMentionsOnComment(ctx, tx, CommentMentionInput{
			ActorID:   userID,
			ItemID:    itemID,
			CommentID: comment.ID,
			Text:      req.Body,
		})
	})
	if err != nil {
		// The comment never landed, release the cooldown
		if cerr := ClearRateLimit(ctx, s.redisClient, userID, "comment"); cerr != nil {
			log.Printf("failed to clear comment rate limit for user %s: %v", userID, cerr)
		}
		return nil, err
	}

	// Milestone recomputes run after commit; safe to call whether or not a
	// threshold was crossed, and a failure never fails the comment
	go func() {
		bgCtx := context.Background()
		if err := s.milestoneSvc.OwnerItemReviews(bgCtx, nil, item.ID); err != nil {
			log.Printf("item-reviews milestone failed for item %s: %v", item.ID, err)
		}
		if err := s.milestoneSvc.UserReviewsGiven(bgCtx, nil, userID); err != nil {
			log.Printf("reviews-given milestone failed for user %s: %v", userID, err)
		}
	}()

	return comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, actor *model.User, commentID uuid.UUID, req dto.UpdateCommentRequest) (*model.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if comment.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}

	comment.Body = req.Body
	if req.Rating != nil {
		comment.Rating = *req.Rating
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).Update(ctx, comment); err != nil {
			return err
		}
		// Re-parse so mention snippets and notifications track the edit
		return s.mentionSvc.HandleMentionsOnComment(ctx, tx, CommentMentionInput{
			ActorID:   comment.UserID,
			ItemID:    comment.ItemID,
			CommentID: comment.ID,
			Text:      comment.Body,
		})
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *commentService) DeleteComment(ctx context.Context, actor *model.User, commentID uuid.UUID) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperror.ErrNotFound
		}
		return err
	}
	if comment.UserID != actor.ID && actor.Kind != model.UserKindAdmin {
		return apperror.ErrForbidden
	}
	return s.commentRepo.Delete(ctx, commentID)
}

func (s *commentService) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]model.Comment, error) {
	return s.commentRepo.ListByItem(ctx, itemID, limit, offset)
}

func (s *commentService) Vote(ctx context.Context, userID, commentID uuid.UUID, dir string) error {
	if dir != model.VoteUp && dir != model.VoteDown {
		return apperror.ErrInvalidInput
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperror.ErrNotFound
		}
		return err
	}

	if err := s.commentRepo.SetVote(ctx, &model.CommentVote{
		CommentID: commentID,
		UserID:    userID,
		Dir:       dir,
	}); err != nil {
		return err
	}

	// Upvote notification for the author; failures never fail the vote
	if dir == model.VoteUp && comment.UserID != userID {
		pref, err := s.notifSvc.GetPreference(ctx, comment.UserID)
		if err != nil {
			log.Printf("preference lookup failed for user %s: %v", comment.UserID, err)
			return nil
		}
		if !pref.CommentUpvoted {
			return nil
		}

		bucket := time.Now().Unix() / int64(cvoteBucket.Seconds())
		_, err = s.notifSvc.Notify(ctx, NotificationInput{
			UserID:   comment.UserID,
			Type:     model.NotifTypeCommentVote,
			Title:    "Your review got an upvote",
			Body:     "Someone found your review helpful.",
			Link:     fmt.Sprintf("/items/%s", comment.ItemID),
			EventKey: fmt.Sprintf("cvote:%s:%s:%d", commentID, dir, bucket),
		})
		if err != nil {
			log.Printf("upvote notification failed for comment %s: %v", commentID, err)
		}
	}
	return nil
}
