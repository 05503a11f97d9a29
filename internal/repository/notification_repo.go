package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"ratestuff.app/backend/internal/model"
)

type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository

	// Insert writes the notification unless its event key already exists.
	// Returns false when the key was already seen (no row written, no error).
	Insert(ctx context.Context, notification *model.Notification) (bool, error)

	// UpsertByEventKey inserts, or refreshes title/body/link/image/data of
	// the existing row with the same event key.
	UpsertByEventKey(ctx context.Context, notification *model.Notification) error

	// InsertMany bulk-inserts, skipping rows whose event key already exists.
	InsertMany(ctx context.Context, notifications []model.Notification) error

	// ExistingEventKeys returns the subset of keys that already have rows.
	ExistingEventKeys(ctx context.Context, keys []string) ([]string, error)

	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error

	GetPreference(ctx context.Context, userID uuid.UUID) (model.NotificationPreference, error)
	PreferencesFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *model.NotificationPreference) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	if tx == nil {
		return r
	}
	return &notificationRepository{db: tx}
}

func (r *notificationRepository) Insert(ctx context.Context, notification *model.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_key"}},
			DoNothing: true,
		}).
		Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepository) UpsertByEventKey(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "body", "link", "image", "data"}),
		}).
		Create(notification).Error
}

func (r *notificationRepository) InsertMany(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_key"}},
			DoNothing: true,
		}).
		CreateInBatches(notifications, 100).Error
}

func (r *notificationRepository) ExistingEventKeys(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("event_key IN ?", keys).
		Pluck("event_key", &existing).Error
	return existing, err
}

func (r *notificationRepository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now()).Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now()).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{}).Error
}

func (r *notificationRepository) GetPreference(ctx context.Context, userID uuid.UUID) (model.NotificationPreference, error) {
	var pref model.NotificationPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.DefaultNotificationPreference(userID), nil
		}
		return pref, err
	}
	return pref, nil
}

func (r *notificationRepository) PreferencesFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.NotificationPreference, error) {
	result := make(map[uuid.UUID]model.NotificationPreference, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var prefs []model.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&prefs).Error
	if err != nil {
		return nil, err
	}
	for _, p := range prefs {
		result[p.UserID] = p
	}
	// Missing rows mean default (all flags true)
	for _, id := range userIDs {
		if _, ok := result[id]; !ok {
			result[id] = model.DefaultNotificationPreference(id)
		}
	}
	return result, nil
}

func (r *notificationRepository) SavePreference(ctx context.Context, pref *model.NotificationPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tag_peer_new_item", "comment_upvoted", "report_events", "updated_at"}),
		}).
		Create(pref).Error
}
