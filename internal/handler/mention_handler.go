package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/internal/service"
	"ratestuff.app/backend/pkg/response"
)

type MentionHandler struct {
	mentionService service.MentionService
	userRepo       repository.UserRepository
}

func NewMentionHandler(mentionService service.MentionService, userRepo repository.UserRepository) *MentionHandler {
	return &MentionHandler{
		mentionService: mentionService,
		userRepo:       userRepo,
	}
}

// ListMentions returns live mentions of the authenticated brand user.
func (h *MentionHandler) ListMentions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit, offset := pagination(c)

	mentions, err := h.mentionService.ListForBrand(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mentions})
}

// HideMention soft-hides a mention. Only the mentioned brand or an admin
// may hide; rows are never hard-deleted here.
func (h *MentionHandler) HideMention(c *gin.Context) {
	user, err := currentUser(c, h.userRepo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mention id"})
		return
	}

	if err := h.mentionService.Hide(c.Request.Context(), id, user); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mention hidden"})
}
