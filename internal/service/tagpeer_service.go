package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
)

type TagPeerService interface {
	// NotifyTagPeers fans one notification out to every other user who
	// previously shared an item with an overlapping tag, skipping peers who
	// opted out and event keys that already exist. Safe to retry: the key
	// tagpeer:{peer}:{item} makes reruns no-ops.
	NotifyTagPeers(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error
}

type tagPeerService struct {
	itemRepo    repository.ItemRepository
	notifRepo   repository.NotificationRepository
	redisClient *redis.Client
}

func NewTagPeerService(
	itemRepo repository.ItemRepository,
	notifRepo repository.NotificationRepository,
	redisClient *redis.Client,
) TagPeerService {
	return &tagPeerService{
		itemRepo:    itemRepo,
		notifRepo:   notifRepo,
		redisClient: redisClient,
	}
}

func (s *tagPeerService) NotifyTagPeers(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	itemRepo := s.itemRepo.WithTx(tx)
	notifRepo := s.notifRepo.WithTx(tx)

	item, err := itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if len(item.Tags) == 0 {
		return nil
	}

	peerIDs, err := itemRepo.TagPeerIDs(ctx, itemID, item.OwnerID)
	if err != nil {
		return err
	}
	if len(peerIDs) == 0 {
		return nil
	}

	// Preference filter: a missing row means opted in
	prefs, err := notifRepo.PreferencesFor(ctx, peerIDs)
	if err != nil {
		return err
	}
	candidates := make([]uuid.UUID, 0, len(peerIDs))
	for _, peerID := range peerIDs {
		if prefs[peerID].TagPeerNewItem {
			candidates = append(candidates, peerID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// One batched existence check, then insert only the unseen subset.
	// Cheaper than eating a duplicate-key conflict per row at scale.
	keys := make([]string, len(candidates))
	keyToPeer := make(map[string]uuid.UUID, len(candidates))
	for i, peerID := range candidates {
		key := fmt.Sprintf("tagpeer:%s:%s", peerID, itemID)
		keys[i] = key
		keyToPeer[key] = peerID
	}
	existing, err := notifRepo.ExistingEventKeys(ctx, keys)
	if err != nil {
		return err
	}
	for _, key := range existing {
		delete(keyToPeer, key)
	}
	if len(keyToPeer) == 0 {
		return nil
	}

	title := fmt.Sprintf("New item in tags you follow: %s", item.Title)
	link := fmt.Sprintf("/items/%s", item.ID)
	notifications := make([]model.Notification, 0, len(keyToPeer))
	for _, key := range keys {
		peerID, ok := keyToPeer[key]
		if !ok {
			continue
		}
		notifications = append(notifications, model.Notification{
			UserID:   peerID,
			Type:     model.NotifTypeTagPeerNewItem,
			Title:    title,
			Body:     fmt.Sprintf("Someone shared %q with a tag you have posted in before.", item.Title),
			Link:     &link,
			EventKey: key,
		})
	}
	if err := notifRepo.InsertMany(ctx, notifications); err != nil {
		return err
	}

	for i := range notifications {
		publishNotification(ctx, s.redisClient, &notifications[i])
	}
	return nil
}
