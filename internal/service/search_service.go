package service

import (
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"ratestuff.app/backend/internal/model"
)

type SearchService interface {
	IndexItem(item *model.Item) error
	DeleteItem(id string) error
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"tags", "owner_id"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	_, err := s.client.Index("items").UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update items filterable attributes: %v", err)
	}

	sortableAttrs := []string{"created_at"}
	_, err = s.client.Index("items").UpdateSortableAttributes(&sortableAttrs)
	if err != nil {
		log.Printf("Failed to update items sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliItemDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Tags        []string `json:"tags"`
	OwnerID     string   `json:"owner_id"`
	CreatedAt   int64    `json:"created_at"`
}

func (s *searchService) cleanContentForIndex(content string) string {
	// Block tags become spaces so words don't merge
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	cleanText = strings.Join(strings.Fields(cleanText), " ")

	return cleanText
}

func (s *searchService) IndexItem(item *model.Item) error {
	tags := make([]string, 0, len(item.Tags))
	for _, t := range item.Tags {
		tags = append(tags, t.Name)
	}

	doc := meiliItemDoc{
		ID:          item.ID.String(),
		Title:       item.Title,
		Description: s.cleanContentForIndex(item.Description),
		Slug:        item.Slug,
		Tags:        tags,
		OwnerID:     item.OwnerID.String(),
		CreatedAt:   item.CreatedAt.Unix(),
	}

	task, err := s.client.Index("items").AddDocuments([]meiliItemDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed item %s, task id: %d", item.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteItem(id string) error {
	_, err := s.client.Index("items").DeleteDocument(id)
	return err
}

func strPtr(s string) *string {
	return &s
}
