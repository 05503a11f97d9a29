package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
)

// Notification write quota: at most notifyQuota writes per recipient within
// the trailing notifyWindow, recomputed from persisted rows on every call so
// it survives restarts and multiple instances.
const (
	notifyQuota  = 10
	notifyWindow = time.Minute
)

// NotificationInput is the payload accepted by Notify/UpsertTx. EventKey is
// optional; when empty a deterministic key is derived from the content.
type NotificationInput struct {
	UserID   uuid.UUID
	Type     string
	Title    string
	Body     string
	Link     string
	Image    string
	Data     map[string]interface{}
	EventKey string
}

type NotificationService interface {
	// Notify persists the notification unless the recipient is over quota
	// or the event key was already seen. A (nil, nil) return is the no-op
	// signal for both cases, never an error.
	Notify(ctx context.Context, input NotificationInput) (*model.Notification, error)

	// UpsertTx inserts or refreshes the notification with the same event
	// key, inside the given transaction. Used by the mention pipeline so
	// re-triggering on an edit updates instead of spamming.
	UpsertTx(ctx context.Context, tx *gorm.DB, input NotificationInput) error

	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	ClearAll(ctx context.Context, userID uuid.UUID) error

	GetPreference(ctx context.Context, userID uuid.UUID) (model.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *model.NotificationPreference) error
}

type notificationService struct {
	repo        repository.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, input NotificationInput) (*model.Notification, error) {
	// 1. Quota check (read-only; a failing count aborts the write)
	under, err := s.underQuota(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !under {
		return nil, nil
	}

	// 2. Idempotent insert
	notification, err := input.toModel()
	if err != nil {
		return nil, err
	}
	inserted, err := s.repo.Insert(ctx, notification)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Same event key already recorded
		return nil, nil
	}

	// 3. Live fan-out, best effort
	publishNotification(ctx, s.redisClient, notification)

	return notification, nil
}

func (s *notificationService) UpsertTx(ctx context.Context, tx *gorm.DB, input NotificationInput) error {
	notification, err := input.toModel()
	if err != nil {
		return err
	}
	if err := s.repo.WithTx(tx).UpsertByEventKey(ctx, notification); err != nil {
		return err
	}
	publishNotification(ctx, s.redisClient, notification)
	return nil
}

func (s *notificationService) underQuota(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.repo.CountSince(ctx, userID, time.Now().Add(-notifyWindow))
	if err != nil {
		return false, err
	}
	return count < notifyQuota, nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) ClearAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteAllForUser(ctx, userID)
}

func (s *notificationService) GetPreference(ctx context.Context, userID uuid.UUID) (model.NotificationPreference, error) {
	return s.repo.GetPreference(ctx, userID)
}

func (s *notificationService) SavePreference(ctx context.Context, pref *model.NotificationPreference) error {
	return s.repo.SavePreference(ctx, pref)
}

func (in NotificationInput) toModel() (*model.Notification, error) {
	notification := &model.Notification{
		UserID:   in.UserID,
		Type:     in.Type,
		Title:    in.Title,
		Body:     in.Body,
		EventKey: DeriveEventKey(in.EventKey, in.UserID, in.Type, in.Link, in.Body),
	}
	if in.Link != "" {
		link := in.Link
		notification.Link = &link
	}
	if in.Image != "" {
		image := in.Image
		notification.Image = &image
	}
	if in.Data != nil {
		raw, err := json.Marshal(in.Data)
		if err != nil {
			return nil, err
		}
		notification.Data = raw
	}
	return notification, nil
}

// publishNotification pushes the notification onto the recipient's Redis
// channel for websocket delivery. Failures are logged, never surfaced: live
// delivery is optional, the row is the source of truth.
func publishNotification(ctx context.Context, rdb *redis.Client, notification *model.Notification) {
	if rdb == nil {
		return
	}
	channel := fmt.Sprintf("user_notifications:%s", notification.UserID.String())
	payload, err := json.Marshal(notification)
	if err != nil {
		return
	}
	if err := rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("failed to publish notification to redis: %v", err)
	}
}
