package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"ratestuff.app/backend/internal/service"
	"ratestuff.app/backend/pkg/response"
)

type AdminHandler struct {
	redisClient *redis.Client
}

func NewAdminHandler(redisClient *redis.Client) *AdminHandler {
	return &AdminHandler{redisClient: redisClient}
}

// ClearRateLimit releases a user's posting cooldown early, for support cases
// where the SetNX lock outlived a failed action.
func (h *AdminHandler) ClearRateLimit(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	action := c.Param("action")
	if action != "comment" && action != "item" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rate limit action"})
		return
	}

	if err := service.ClearRateLimit(c.Request.Context(), h.redisClient, userID, action); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rate limit cleared"})
}
