package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/pkg/apperror"
)

const mentionSnippetMaxRunes = 140

// ResolvedMention is a mention mapped to a concrete brand identity. BrandID
// is a user id: brand accounts are users of kind BRAND, sharing one
// identity space with regular users.
type ResolvedMention struct {
	BrandID uuid.UUID
	Display string
}

type CommentMentionInput struct {
	ActorID   uuid.UUID
	ItemID    uuid.UUID
	CommentID uuid.UUID
	Text      string
}

type PostMentionInput struct {
	ActorID     uuid.UUID
	ItemID      uuid.UUID
	Description string
}

type MentionService interface {
	// HandleMentionsOnComment runs parse -> resolve -> upsert for a comment
	// body, inside the caller's transaction. An error rolls the whole
	// triggering operation back (deliberate: mention state stays consistent
	// with the text that produced it).
	HandleMentionsOnComment(ctx context.Context, tx *gorm.DB, input CommentMentionInput) error

	// HandleMentionsOnPost is the same flow for an item's description.
	HandleMentionsOnPost(ctx context.Context, tx *gorm.DB, input PostMentionInput) error

	ListForBrand(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]model.Mention, error)
	Hide(ctx context.Context, id uuid.UUID, actor *model.User) error
}

type mentionService struct {
	mentionRepo repository.MentionRepository
	brandRepo   repository.BrandRepository
	userRepo    repository.UserRepository
	notifSvc    NotificationService
	sanitizer   *bluemonday.Policy
}

func NewMentionService(
	mentionRepo repository.MentionRepository,
	brandRepo repository.BrandRepository,
	userRepo repository.UserRepository,
	notifSvc NotificationService,
) MentionService {
	return &mentionService{
		mentionRepo: mentionRepo,
		brandRepo:   brandRepo,
		userRepo:    userRepo,
		notifSvc:    notifSvc,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *mentionService) HandleMentionsOnComment(ctx context.Context, tx *gorm.DB, input CommentMentionInput) error {
	return s.handle(ctx, tx, input.ActorID, input.ItemID, input.CommentID, input.Text, model.NotifTypeMentionInComment)
}

func (s *mentionService) HandleMentionsOnPost(ctx context.Context, tx *gorm.DB, input PostMentionInput) error {
	return s.handle(ctx, tx, input.ActorID, input.ItemID, model.MentionCommentNone, input.Description, model.NotifTypeMentionInPost)
}

func (s *mentionService) handle(ctx context.Context, tx *gorm.DB, actorID, itemID, commentID uuid.UUID, text, notifType string) error {
	parsed := ExtractMentions(text)
	if len(parsed) == 0 {
		return nil
	}

	targets, err := s.resolve(ctx, tx, parsed)
	if err != nil {
		return err
	}

	snippet := s.snippet(text)

	g, gctx := errgroup.WithContext(ctx)
	if tx != nil {
		// A transaction is bound to a single connection, so the fan-out
		// serializes inside one; outside a tx the pool handles parallelism.
		g.SetLimit(1)
	}

	for _, target := range targets {
		if target.BrandID == actorID {
			// Self-mention: actor mentioning their own brand account
			continue
		}

		target := target
		g.Go(func() error {
			mention := &model.Mention{
				BrandID:   target.BrandID,
				ActorID:   actorID,
				ItemID:    itemID,
				CommentID: commentID,
				Snippet:   snippet,
			}
			if err := s.mentionRepo.WithTx(tx).Upsert(gctx, mention); err != nil {
				return err
			}

			scope := "post"
			commentRef := "desc"
			if commentID != model.MentionCommentNone {
				scope = "comment"
				commentRef = commentID.String()
			}
			return s.notifSvc.UpsertTx(gctx, tx, NotificationInput{
				UserID:   target.BrandID,
				Type:     notifType,
				Title:    fmt.Sprintf("%s was mentioned", target.Display),
				Body:     snippet,
				Link:     fmt.Sprintf("/items/%s", itemID),
				EventKey: fmt.Sprintf("mention:%s:%s:%s:%s", scope, target.BrandID, itemID, commentRef),
				Data: map[string]interface{}{
					"item_id":    itemID.String(),
					"comment_id": commentRef,
					"actor_id":   actorID.String(),
				},
			})
		})
	}

	return g.Wait()
}

// resolve maps parsed mentions to brand identities. Mentions already
// carrying a brand id pass through; slug-only mentions go through two
// batched lookups (slugs -> brand accounts, emails -> users). Any hop that
// finds nothing silently drops the mention. Output is de-duplicated by
// resolved brand id.
func (s *mentionService) resolve(ctx context.Context, tx *gorm.DB, parsed []ParsedMention) ([]ResolvedMention, error) {
	var slugs []string
	for _, p := range parsed {
		if p.BrandID == "" && p.Slug != "" {
			slugs = append(slugs, p.Slug)
		}
	}

	brandBySlug := make(map[string]model.BrandAccount)
	userByEmail := make(map[string]model.User)
	if len(slugs) > 0 {
		brands, err := s.brandRepo.WithTx(tx).FindBySlugs(ctx, slugs)
		if err != nil {
			return nil, err
		}
		emails := make([]string, 0, len(brands))
		for _, b := range brands {
			brandBySlug[b.Slug] = b
			emails = append(emails, b.Email)
		}
		users, err := s.userRepo.WithTx(tx).FindByEmails(ctx, emails)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			userByEmail[u.Email] = u
		}
	}

	seen := make(map[uuid.UUID]bool, len(parsed))
	resolved := make([]ResolvedMention, 0, len(parsed))
	for _, p := range parsed {
		var brandID uuid.UUID
		switch {
		case p.BrandID != "":
			id, err := uuid.Parse(p.BrandID)
			if err != nil {
				continue
			}
			brandID = id
		case p.Slug != "":
			brand, ok := brandBySlug[p.Slug]
			if !ok {
				continue
			}
			user, ok := userByEmail[brand.Email]
			if !ok {
				continue
			}
			brandID = user.ID
		default:
			continue
		}

		if seen[brandID] {
			continue
		}
		seen[brandID] = true
		resolved = append(resolved, ResolvedMention{BrandID: brandID, Display: p.Display})
	}
	return resolved, nil
}

func (s *mentionService) ListForBrand(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]model.Mention, error) {
	return s.mentionRepo.ListForBrand(ctx, brandID, limit, offset)
}

func (s *mentionService) Hide(ctx context.Context, id uuid.UUID, actor *model.User) error {
	mention, err := s.mentionRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperror.ErrNotFound
		}
		return err
	}
	if mention.BrandID != actor.ID && actor.Kind != model.UserKindAdmin {
		return apperror.ErrForbidden
	}
	return s.mentionRepo.Hide(ctx, id, actor.ID)
}

// snippet strips markup and truncates, same cleanup the search indexer does.
func (s *mentionService) snippet(text string) string {
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "</div>", " ")

	clean := html.UnescapeString(s.sanitizer.Sanitize(text))
	clean = strings.Join(strings.Fields(clean), " ")

	runes := []rune(clean)
	if len(runes) > mentionSnippetMaxRunes {
		return string(runes[:mentionSnippetMaxRunes]) + "..."
	}
	return clean
}
