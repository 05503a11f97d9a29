package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types.
const (
	NotifTypeMentionInComment = "MENTION_IN_COMMENT"
	NotifTypeMentionInPost    = "MENTION_IN_POST"
	NotifTypeMilestone        = "MILESTONE"
	NotifTypeTagPeerNewItem   = "TAGPEER_NEW_ITEM"
	NotifTypeCommentVote      = "COMMENT_VOTE"
)

// Notification is idempotent on EventKey: inserting a second row with the
// same key is a silent no-op, never an error. Rows are only ever mutated to
// set ReadAt (mention upserts refresh title/body through their own key).
type Notification struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_notifications_user_created" json:"user_id"`
	Type      string          `gorm:"size:50;not null" json:"type"`
	Title     string          `gorm:"size:255;not null" json:"title"`
	Body      string          `gorm:"type:text" json:"body"`
	Link      *string         `gorm:"type:text" json:"link,omitempty"`
	Image     *string         `gorm:"type:text" json:"image,omitempty"`
	Data      json.RawMessage `gorm:"type:jsonb" json:"data,omitempty"`
	EventKey  string          `gorm:"size:255;uniqueIndex;not null" json:"event_key"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index:idx_notifications_user_created" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// MentionCommentNone marks a mention that sits in an item's description
// rather than a comment. Using the zero UUID as sentinel keeps the
// (brand, item, comment) unique index effective for description mentions.
var MentionCommentNone = uuid.Nil

// Mention records that a brand was mentioned in an item description or a
// comment. At most one live row per (brand, item, comment) target;
// re-parsing the same text refreshes Snippet instead of duplicating.
type Mention struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mention_target" json:"brand_id"`
	ActorID    uuid.UUID  `gorm:"type:uuid;not null" json:"actor_id"`
	ItemID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mention_target" json:"item_id"`
	CommentID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mention_target;default:'00000000-0000-0000-0000-000000000000'" json:"comment_id"`
	Snippet    string     `gorm:"size:255" json:"snippet"`
	HiddenAt   *time.Time `json:"hidden_at,omitempty"`
	HiddenByID *uuid.UUID `gorm:"type:uuid" json:"hidden_by_id,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Brand *User `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (m *Mention) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
