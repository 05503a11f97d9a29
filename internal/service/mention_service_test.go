package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/pkg/apperror"
)

type mentionFixture struct {
	mentionRepo *mockMentionRepo
	brandRepo   *mockBrandRepo
	userRepo    *mockUserRepo
	notifRepo   *mockNotificationRepo
	svc         MentionService
}

func newMentionFixture() *mentionFixture {
	mentionRepo := newMockMentionRepo()
	brandRepo := newMockBrandRepo()
	userRepo := newMockUserRepo()
	notifRepo := newMockNotificationRepo()
	notifSvc := NewNotificationService(notifRepo, nil)
	return &mentionFixture{
		mentionRepo: mentionRepo,
		brandRepo:   brandRepo,
		userRepo:    userRepo,
		notifRepo:   notifRepo,
		svc:         NewMentionService(mentionRepo, brandRepo, userRepo, notifSvc),
	}
}

func TestHandleMentionsOnCommentCreatesMentionAndNotification(t *testing.T) {
	f := newMentionFixture()
	actorID := uuid.New()
	brandID := uuid.New()
	itemID := uuid.New()
	commentID := uuid.New()

	text := fmt.Sprintf(`Loving the new gear from <span data-mention-id="%s">Acme</span>!`, brandID)
	err := f.svc.HandleMentionsOnComment(context.Background(), nil, CommentMentionInput{
		ActorID:   actorID,
		ItemID:    itemID,
		CommentID: commentID,
		Text:      text,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mention := f.mentionRepo.byTarget(brandID, itemID, commentID)
	if mention == nil {
		t.Fatal("expected a mention row for the brand")
	}
	if mention.ActorID != actorID {
		t.Fatalf("unexpected actor %s", mention.ActorID)
	}
	if !strings.Contains(mention.Snippet, "Acme") {
		t.Fatalf("snippet lost the display text: %q", mention.Snippet)
	}

	key := fmt.Sprintf("mention:comment:%s:%s:%s", brandID, itemID, commentID)
	if f.notifRepo.byEventKey(key) == nil {
		t.Fatalf("expected notification with key %q", key)
	}
}

func TestHandleMentionsSkipsSelfMention(t *testing.T) {
	f := newMentionFixture()
	brandUserID := uuid.New()
	itemID := uuid.New()
	commentID := uuid.New()

	text := fmt.Sprintf(`We at <span data-mention-id="%s">Acme</span> thank you`, brandUserID)
	err := f.svc.HandleMentionsOnComment(context.Background(), nil, CommentMentionInput{
		ActorID:   brandUserID,
		ItemID:    itemID,
		CommentID: commentID,
		Text:      text,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.mentionRepo.count() != 0 {
		t.Fatalf("self-mention must not create a mention row, got %d", f.mentionRepo.count())
	}
	if f.notifRepo.count() != 0 {
		t.Fatalf("self-mention must not notify, got %d rows", f.notifRepo.count())
	}
}

func TestHandleMentionsEditUpdatesInsteadOfDuplicating(t *testing.T) {
	f := newMentionFixture()
	actorID := uuid.New()
	brandID := uuid.New()
	itemID := uuid.New()
	commentID := uuid.New()
	ctx := context.Background()

	original := fmt.Sprintf(`<span data-mention-id="%s">Acme</span> first draft`, brandID)
	if err := f.svc.HandleMentionsOnComment(ctx, nil, CommentMentionInput{
		ActorID: actorID, ItemID: itemID, CommentID: commentID, Text: original,
	}); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	edited := fmt.Sprintf(`<span data-mention-id="%s">Acme</span> the edited version`, brandID)
	if err := f.svc.HandleMentionsOnComment(ctx, nil, CommentMentionInput{
		ActorID: actorID, ItemID: itemID, CommentID: commentID, Text: edited,
	}); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	if f.mentionRepo.count() != 1 {
		t.Fatalf("edit must update the mention in place, got %d rows", f.mentionRepo.count())
	}
	mention := f.mentionRepo.byTarget(brandID, itemID, commentID)
	if !strings.Contains(mention.Snippet, "edited version") {
		t.Fatalf("snippet not refreshed on edit: %q", mention.Snippet)
	}

	if f.notifRepo.count() != 1 {
		t.Fatalf("edit must refresh the notification, not duplicate it, got %d rows", f.notifRepo.count())
	}
	key := fmt.Sprintf("mention:comment:%s:%s:%s", brandID, itemID, commentID)
	notification := f.notifRepo.byEventKey(key)
	if notification == nil || !strings.Contains(notification.Body, "edited version") {
		t.Fatalf("notification body not refreshed: %+v", notification)
	}
}

func TestHandleMentionsOnPostUsesDescriptionSentinel(t *testing.T) {
	f := newMentionFixture()
	actorID := uuid.New()
	brandID := uuid.New()
	itemID := uuid.New()

	text := fmt.Sprintf(`Made by <span data-mention-id="%s">Acme</span>`, brandID)
	err := f.svc.HandleMentionsOnPost(context.Background(), nil, PostMentionInput{
		ActorID:     actorID,
		ItemID:      itemID,
		Description: text,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.mentionRepo.byTarget(brandID, itemID, model.MentionCommentNone) == nil {
		t.Fatal("description mention must use the no-comment sentinel")
	}
	key := fmt.Sprintf("mention:post:%s:%s:desc", brandID, itemID)
	if f.notifRepo.byEventKey(key) == nil {
		t.Fatalf("expected notification with key %q", key)
	}
}

func TestHandleMentionsResolvesSlugsAndDropsMisses(t *testing.T) {
	f := newMentionFixture()
	ctx := context.Background()
	actorID := uuid.New()
	itemID := uuid.New()
	commentID := uuid.New()

	brandUser := &model.User{
		ID:       uuid.New(),
		Username: "acme",
		Email:    "hello@acme.example",
		Kind:     model.UserKindBrand,
	}
	if err := f.userRepo.Create(ctx, brandUser); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	if err := f.brandRepo.Create(ctx, &model.BrandAccount{
		Slug:  "acme",
		Name:  "Acme",
		Email: "hello@acme.example",
	}); err != nil {
		t.Fatalf("seed brand failed: %v", err)
	}

	text := `Try @[Acme](slug:acme) but not @[Ghost](slug:no-such-brand)`
	err := f.svc.HandleMentionsOnComment(ctx, nil, CommentMentionInput{
		ActorID: actorID, ItemID: itemID, CommentID: commentID, Text: text,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.mentionRepo.count() != 1 {
		t.Fatalf("unresolvable slug must be dropped silently, got %d rows", f.mentionRepo.count())
	}
	if f.mentionRepo.byTarget(brandUser.ID, itemID, commentID) == nil {
		t.Fatal("slug mention must resolve through the brand account to its user")
	}
}

func TestHideMentionAuthorization(t *testing.T) {
	f := newMentionFixture()
	ctx := context.Background()
	brandID := uuid.New()
	itemID := uuid.New()

	mention := &model.Mention{
		BrandID:   brandID,
		ActorID:   uuid.New(),
		ItemID:    itemID,
		CommentID: model.MentionCommentNone,
		Snippet:   "something",
	}
	if err := f.mentionRepo.Upsert(ctx, mention); err != nil {
		t.Fatalf("seed mention failed: %v", err)
	}

	stranger := &model.User{ID: uuid.New(), Kind: model.UserKindUser}
	if err := f.svc.Hide(ctx, mention.ID, stranger); err != apperror.ErrForbidden {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	owner := &model.User{ID: brandID, Kind: model.UserKindBrand}
	if err := f.svc.Hide(ctx, mention.ID, owner); err != nil {
		t.Fatalf("brand owner must be allowed to hide: %v", err)
	}

	visible, err := f.svc.ListForBrand(ctx, brandID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("hidden mention must not be listed, got %d", len(visible))
	}
}

func TestHideMentionNotFound(t *testing.T) {
	f := newMentionFixture()
	admin := &model.User{ID: uuid.New(), Kind: model.UserKindAdmin}
	if err := f.svc.Hide(context.Background(), uuid.New(), admin); err != apperror.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
