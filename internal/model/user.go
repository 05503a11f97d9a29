package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User kinds. Brand accounts live in the same identity space as regular
// users, so a brand id is always also a valid user id.
const (
	UserKindUser  = "USER"
	UserKindBrand = "BRAND"
	UserKindAdmin = "ADMIN"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Kind         string    `gorm:"size:20;not null;default:'USER'" json:"kind"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BrandAccount maps a public brand slug to the brand user's login email.
// Resolution chain for slug mentions: slug -> brand account -> email -> user.
// The resolved user is the brand identity itself (kind BRAND).
type BrandAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *BrandAccount) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// NotificationPreference holds per-user opt-out flags. A missing row means
// every flag defaults to true.
type NotificationPreference struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	TagPeerNewItem bool      `gorm:"not null;default:true" json:"tag_peer_new_item"`
	CommentUpvoted bool      `gorm:"not null;default:true" json:"comment_upvoted"`
	ReportEvents   bool      `gorm:"not null;default:true" json:"report_events"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultNotificationPreference is what we assume when no row exists.
func DefaultNotificationPreference(userID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		UserID:         userID,
		TagPeerNewItem: true,
		CommentUpvoted: true,
		ReportEvents:   true,
	}
}
