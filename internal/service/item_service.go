package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/dto"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/pkg/apperror"
)

type ItemService interface {
	CreateItem(ctx context.Context, ownerID uuid.UUID, req dto.CreateItemRequest) (*model.Item, error)
	UpdateItem(ctx context.Context, actor *model.User, itemID uuid.UUID, req dto.UpdateItemRequest) (*model.Item, error)
	DeleteItem(ctx context.Context, actor *model.User, itemID uuid.UUID) error
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]model.Item, error)
}

type itemService struct {
	db           *gorm.DB
	itemRepo     repository.ItemRepository
	mentionSvc   MentionService
	tagPeerSvc   TagPeerService
	milestoneSvc MilestoneService
	searchSvc    SearchService
	redisClient  *redis.Client
	rateLimit    time.Duration
}

func NewItemService(
	db *gorm.DB,
	itemRepo repository.ItemRepository,
	mentionSvc MentionService,
	tagPeerSvc TagPeerService,
	milestoneSvc MilestoneService,
	searchSvc SearchService,
	redisClient *redis.Client,
	rateLimit time.Duration,
) ItemService {
	return &itemService{
		db:           db,
		itemRepo:     itemRepo,
		mentionSvc:   mentionSvc,
		tagPeerSvc:   tagPeerSvc,
		milestoneSvc: milestoneSvc,
		searchSvc:    searchSvc,
		redisClient:  redisClient,
		rateLimit:    rateLimit,
	}
}

func (s *itemService) CreateItem(ctx context.Context, ownerID uuid.UUID, req dto.CreateItemRequest) (*model.Item, error) {
	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, ownerID, "item", s.rateLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, RateLimitRetryError(ctx, s.redisClient, ownerID, "item")
	}

	item := &model.Item{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Slug:        makeSlug(req.Title),
	}

	// Mentions in the description run inside the same transaction: a
	// mention failure rolls the item back, keeping text and mention state
	// consistent.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.itemRepo.WithTx(tx)
		if err := repo.Create(ctx, item); err != nil {
			return err
		}
		if len(req.Tags) > 0 {
			tags, err := repo.FindOrCreateTags(ctx, req.Tags)
			if err != nil {
				return err
			}
			if err := repo.ReplaceTags(ctx, item, tags); err != nil {
				return err
			}
		}
		return s.mentionSvc.HandleMentionsOnPost(ctx, tx, PostMentionInput{
			ActorID:     ownerID,
			ItemID:      item.ID,
			Description: req.Description,
		})
	})
	if err != nil {
		// The item never landed, release the cooldown
		if cerr := ClearRateLimit(ctx, s.redisClient, ownerID, "item"); cerr != nil {
			log.Printf("failed to clear item rate limit for user %s: %v", ownerID, cerr)
		}
		return nil, err
	}

	// Fan-out and counters run after commit; failures must never fail the
	// create itself, retries self-heal through event-key dedup.
	go func() {
		bgCtx := context.Background()
		if err := s.tagPeerSvc.NotifyTagPeers(bgCtx, nil, item.ID); err != nil {
			log.Printf("tag peer notify failed for item %s: %v", item.ID, err)
		}
		if err := s.milestoneSvc.UserItemsShared(bgCtx, nil, ownerID); err != nil {
			log.Printf("items-shared milestone failed for user %s: %v", ownerID, err)
		}
		s.indexItem(item.ID)
	}()

	return s.itemRepo.FindByID(ctx, item.ID)
}

func (s *itemService) UpdateItem(ctx context.Context, actor *model.User, itemID uuid.UUID, req dto.UpdateItemRequest) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if item.OwnerID != actor.ID && actor.Kind != model.UserKindAdmin {
		return nil, apperror.ErrForbidden
	}

	if req.Title != "" {
		item.Title = req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.itemRepo.WithTx(tx)
		if err := repo.Update(ctx, item); err != nil {
			return err
		}
		if req.Tags != nil {
			tags, err := repo.FindOrCreateTags(ctx, req.Tags)
			if err != nil {
				return err
			}
			if err := repo.ReplaceTags(ctx, item, tags); err != nil {
				return err
			}
		}
		// Re-parsing the edited description updates existing mention rows
		// and notifications instead of duplicating them
		return s.mentionSvc.HandleMentionsOnPost(ctx, tx, PostMentionInput{
			ActorID:     item.OwnerID,
			ItemID:      item.ID,
			Description: item.Description,
		})
	})
	if err != nil {
		return nil, err
	}

	go s.indexItem(item.ID)

	return s.itemRepo.FindByID(ctx, item.ID)
}

func (s *itemService) DeleteItem(ctx context.Context, actor *model.User, itemID uuid.UUID) error {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperror.ErrNotFound
		}
		return err
	}
	if item.OwnerID != actor.ID && actor.Kind != model.UserKindAdmin {
		return apperror.ErrForbidden
	}

	if err := s.itemRepo.Delete(ctx, itemID); err != nil {
		return err
	}
	if s.searchSvc != nil {
		if err := s.searchSvc.DeleteItem(itemID.String()); err != nil {
			log.Printf("failed to remove item %s from search index: %v", itemID, err)
		}
	}
	return nil
}

func (s *itemService) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *itemService) ListItems(ctx context.Context, limit, offset int) ([]model.Item, error) {
	return s.itemRepo.List(ctx, limit, offset)
}

func (s *itemService) indexItem(id uuid.UUID) {
	if s.searchSvc == nil {
		return
	}
	item, err := s.itemRepo.FindByID(context.Background(), id)
	if err != nil {
		log.Printf("failed to load item %s for indexing: %v", id, err)
		return
	}
	if err := s.searchSvc.IndexItem(item); err != nil {
		log.Printf("failed to index item %s: %v", id, err)
	}
}

// makeSlug builds a URL slug from the title plus a short random suffix so
// identical titles don't collide.
func makeSlug(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	suffix := uuid.NewString()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
