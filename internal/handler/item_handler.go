package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"ratestuff.app/backend/internal/dto"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/internal/service"
	"ratestuff.app/backend/pkg/apperror"
	"ratestuff.app/backend/pkg/response"
	"ratestuff.app/backend/pkg/validator"
)

type ItemHandler struct {
	itemService service.ItemService
	userRepo    repository.UserRepository
}

func NewItemHandler(itemService service.ItemService, userRepo repository.UserRepository) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		userRepo:    userRepo,
	}
}

// currentUser loads the authenticated user for handlers that need the full
// record (kind checks), not just the id.
func currentUser(c *gin.Context, userRepo repository.UserRepository) (*model.User, error) {
	userID, err := response.GetUserID(c)
	if err != nil {
		return nil, err
	}
	user, err := userRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}
	return user, nil
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, err := h.itemService.GetItem(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *ItemHandler) ListItems(c *gin.Context) {
	limit, offset := pagination(c)

	items, err := h.itemService.ListItems(c.Request.Context(), limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	user, err := currentUser(c, h.userRepo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), user, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	user, err := currentUser(c, h.userRepo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.itemService.DeleteItem(c.Request.Context(), user, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}
