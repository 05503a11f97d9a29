package server

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/config"
	"ratestuff.app/backend/internal/handler"
	"ratestuff.app/backend/internal/middleware"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/internal/service"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	itemRepo := repository.NewItemRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	mentionRepo := repository.NewMentionRepository(db)

	var searchSvc service.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewSearchService(meiliClient)
	}

	authSvc := service.NewAuthService(userRepo, brandRepo)
	authHandler := handler.NewAuthHandler(authSvc)

	notificationSvc := service.NewNotificationService(notifRepo, redisClient)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	mentionSvc := service.NewMentionService(mentionRepo, brandRepo, userRepo, notificationSvc)
	mentionHandler := handler.NewMentionHandler(mentionSvc, userRepo)

	milestoneSvc := service.NewMilestoneService(itemRepo, commentRepo, notificationSvc)
	tagPeerSvc := service.NewTagPeerService(itemRepo, notifRepo, redisClient)

	itemSvc := service.NewItemService(db, itemRepo, mentionSvc, tagPeerSvc, milestoneSvc, searchSvc, redisClient, cfg.RateLimitItem)
	itemHandler := handler.NewItemHandler(itemSvc, userRepo)

	commentSvc := service.NewCommentService(db, commentRepo, itemRepo, mentionSvc, milestoneSvc, notificationSvc, redisClient, cfg.RateLimitComment)
	commentHandler := handler.NewCommentHandler(commentSvc, userRepo)

	adminHandler := handler.NewAdminHandler(redisClient)

	router := gin.New()

	setupCORS(router)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Item routes
		protected.POST("/items", itemHandler.CreateItem)
		protected.GET("/items", itemHandler.ListItems)
		protected.GET("/items/:id", itemHandler.GetItem)
		protected.PUT("/items/:id", itemHandler.UpdateItem)
		protected.DELETE("/items/:id", itemHandler.DeleteItem)

		// Comment routes
		protected.POST("/items/:id/comments", commentHandler.CreateComment)
		protected.GET("/items/:id/comments", commentHandler.ListByItem)
		protected.PUT("/comments/:id", commentHandler.UpdateComment)
		protected.DELETE("/comments/:id", commentHandler.DeleteComment)
		protected.POST("/comments/:id/vote", commentHandler.Vote)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications", notificationHandler.ClearAll)
		protected.GET("/notifications/preferences", notificationHandler.GetPreference)
		protected.PUT("/notifications/preferences", notificationHandler.UpdatePreference)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Mention routes (brand inbox)
		protected.GET("/mentions", mentionHandler.ListMentions)
		protected.PUT("/mentions/:id/hide", mentionHandler.HideMention)
	}

	// Admin routes
	admin := protected.Group("/admin")
	admin.Use(authMiddleware.RequireAdmin())
	{
		admin.DELETE("/rate-limits/:user_id/:action", adminHandler.ClearRateLimit)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine) {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
