package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
)

// ── In-memory repository mocks ──
// The mention fan-out runs its upserts concurrently, so the mocks that it
// touches are mutex-guarded.

type mockNotificationRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.Notification // keyed by event key
	prefs   map[uuid.UUID]model.NotificationPreference
	upserts int

	insertErr error
	countErr  error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{
		rows:  make(map[string]*model.Notification),
		prefs: make(map[uuid.UUID]model.NotificationPreference),
	}
}

func (m *mockNotificationRepo) WithTx(tx *gorm.DB) repository.NotificationRepository {
	return m
}

func (m *mockNotificationRepo) Insert(ctx context.Context, n *model.Notification) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[n.EventKey]; exists {
		return false, nil
	}
	m.store(n)
	return true, nil
}

func (m *mockNotificationRepo) UpsertByEventKey(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[n.EventKey]; ok {
		existing.Title = n.Title
		existing.Body = n.Body
		existing.Link = n.Link
		existing.Image = n.Image
		existing.Data = n.Data
		m.upserts++
		return nil
	}
	m.store(n)
	return nil
}

func (m *mockNotificationRepo) InsertMany(ctx context.Context, notifications []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range notifications {
		n := notifications[i]
		if _, exists := m.rows[n.EventKey]; exists {
			continue
		}
		m.store(&n)
	}
	return nil
}

// store assumes the lock is held.
func (m *mockNotificationRepo) store(n *model.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	clone := *n
	m.rows[n.EventKey] = &clone
}

func (m *mockNotificationRepo) ExistingEventKeys(ctx context.Context, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var existing []string
	for _, key := range keys {
		if _, ok := m.rows[key]; ok {
			existing = append(existing, key)
		}
	}
	return existing, nil
}

func (m *mockNotificationRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.rows {
		if n.UserID == userID && !n.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, n := range m.rows {
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
		}
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, n := range m.rows {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
		}
	}
	return nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, n := range m.rows {
		if n.UserID == userID {
			delete(m.rows, key)
		}
	}
	return nil
}

func (m *mockNotificationRepo) GetPreference(ctx context.Context, userID uuid.UUID) (model.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pref, ok := m.prefs[userID]; ok {
		return pref, nil
	}
	return model.DefaultNotificationPreference(userID), nil
}

func (m *mockNotificationRepo) PreferencesFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]model.NotificationPreference, len(userIDs))
	for _, id := range userIDs {
		if pref, ok := m.prefs[id]; ok {
			out[id] = pref
		} else {
			out[id] = model.DefaultNotificationPreference(id)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) SavePreference(ctx context.Context, pref *model.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[pref.UserID] = *pref
	return nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *mockNotificationRepo) byEventKey(key string) *model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key]
}

// ──

type mockMentionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Mention // keyed by brand|item|comment
}

func newMockMentionRepo() *mockMentionRepo {
	return &mockMentionRepo{rows: make(map[string]*model.Mention)}
}

func mentionKey(brandID, itemID, commentID uuid.UUID) string {
	return fmt.Sprintf("%s|%s|%s", brandID, itemID, commentID)
}

func (m *mockMentionRepo) WithTx(tx *gorm.DB) repository.MentionRepository {
	return m
}

func (m *mockMentionRepo) Upsert(ctx context.Context, mention *model.Mention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mentionKey(mention.BrandID, mention.ItemID, mention.CommentID)
	if existing, ok := m.rows[key]; ok {
		existing.Snippet = mention.Snippet
		existing.ActorID = mention.ActorID
		existing.UpdatedAt = time.Now()
		return nil
	}
	if mention.ID == uuid.Nil {
		mention.ID = uuid.New()
	}
	clone := *mention
	m.rows[key] = &clone
	return nil
}

func (m *mockMentionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Mention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mention := range m.rows {
		if mention.ID == id {
			clone := *mention
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMentionRepo) ListForBrand(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]model.Mention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Mention
	for _, mention := range m.rows {
		if mention.BrandID == brandID && mention.HiddenAt == nil {
			out = append(out, *mention)
		}
	}
	return out, nil
}

func (m *mockMentionRepo) Hide(ctx context.Context, id, hiddenBy uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, mention := range m.rows {
		if mention.ID == id && mention.HiddenAt == nil {
			mention.HiddenAt = &now
			mention.HiddenByID = &hiddenBy
		}
	}
	return nil
}

func (m *mockMentionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *mockMentionRepo) byTarget(brandID, itemID, commentID uuid.UUID) *model.Mention {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[mentionKey(brandID, itemID, commentID)]
}

// ──

type mockBrandRepo struct {
	bySlug map[string]model.BrandAccount
}

func newMockBrandRepo() *mockBrandRepo {
	return &mockBrandRepo{bySlug: make(map[string]model.BrandAccount)}
}

func (m *mockBrandRepo) WithTx(tx *gorm.DB) repository.BrandRepository {
	return m
}

func (m *mockBrandRepo) Create(ctx context.Context, brand *model.BrandAccount) error {
	if brand.ID == uuid.Nil {
		brand.ID = uuid.New()
	}
	m.bySlug[brand.Slug] = *brand
	return nil
}

func (m *mockBrandRepo) FindBySlug(ctx context.Context, slug string) (*model.BrandAccount, error) {
	if brand, ok := m.bySlug[slug]; ok {
		return &brand, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBrandRepo) FindBySlugs(ctx context.Context, slugs []string) ([]model.BrandAccount, error) {
	var out []model.BrandAccount
	for _, slug := range slugs {
		if brand, ok := m.bySlug[slug]; ok {
			out = append(out, brand)
		}
	}
	return out, nil
}

// ──

type mockUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) WithTx(tx *gorm.DB) repository.UserRepository {
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	var out []model.User
	for _, email := range emails {
		for _, user := range m.users {
			if user.Email == email {
				out = append(out, *user)
			}
		}
	}
	return out, nil
}

// ──

type mockItemRepo struct {
	items      map[uuid.UUID]*model.Item
	tagPeers   []uuid.UUID
	ownerCount int64
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[uuid.UUID]*model.Item)}
}

func (m *mockItemRepo) WithTx(tx *gorm.DB) repository.ItemRepository {
	return m
}

func (m *mockItemRepo) Create(ctx context.Context, item *model.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepo) Update(ctx context.Context, item *model.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockItemRepo) List(ctx context.Context, limit, offset int) ([]model.Item, error) {
	var out []model.Item
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockItemRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return m.ownerCount, nil
}

func (m *mockItemRepo) FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, model.Tag{ID: uuid.New(), Name: name})
	}
	return tags, nil
}

func (m *mockItemRepo) ReplaceTags(ctx context.Context, item *model.Item, tags []model.Tag) error {
	item.Tags = tags
	return nil
}

func (m *mockItemRepo) TagPeerIDs(ctx context.Context, itemID, ownerID uuid.UUID) ([]uuid.UUID, error) {
	return m.tagPeers, nil
}

// ──

type mockCommentRepo struct {
	comments      map[uuid.UUID]*model.Comment
	reviewerCount int64
	reviewsGiven  int64
	votes         []model.CommentVote
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[uuid.UUID]*model.Comment)}
}

func (m *mockCommentRepo) WithTx(tx *gorm.DB) repository.CommentRepository {
	return m
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockCommentRepo) Update(ctx context.Context, comment *model.Comment) error {
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.comments, id)
	return nil
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	if comment, ok := m.comments[id]; ok {
		return comment, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCommentRepo) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]model.Comment, error) {
	var out []model.Comment
	for _, comment := range m.comments {
		if comment.ItemID == itemID {
			out = append(out, *comment)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) DistinctReviewerCount(ctx context.Context, itemID, ownerID uuid.UUID) (int64, error) {
	return m.reviewerCount, nil
}

func (m *mockCommentRepo) CountReviewsGiven(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.reviewsGiven, nil
}

func (m *mockCommentRepo) SetVote(ctx context.Context, vote *model.CommentVote) error {
	for i := range m.votes {
		if m.votes[i].CommentID == vote.CommentID && m.votes[i].UserID == vote.UserID {
			m.votes[i].Dir = vote.Dir
			return nil
		}
	}
	m.votes = append(m.votes, *vote)
	return nil
}
