package routes

import (
	"net/http"
	"time"

	"nexus/config"
	"nexus/handlers"
	"nexus/metrics"
	"nexus/middleware"
	"nexus/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter assembles the full HTTP surface. rdb may be nil; the auth
// rate limiter then falls back to the in-memory per-IP window.
func SetupRouter(cfg config.Config, hub *websocket.Hub, rdb *redis.Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(metrics.Middleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Nexus API running", "service": "healthy"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Uploads are served verbatim.
	router.Static("/uploads", cfg.UploadDir)

	router.GET("/ws", gin.WrapF(websocket.ServeWS(hub)))

	var limiter gin.HandlerFunc
	if rdb != nil {
		limiter = middleware.NewRedisRateLimiter(rdb, "nexus:ratelimit", cfg.RateLimitPerMin, time.Minute).Middleware()
	} else {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute).Middleware()
	}

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.Use(limiter)
	auth.POST("/register", handlers.Register)
	auth.POST("/login", handlers.Login)
	auth.POST("/forgot-password", handlers.ForgotPassword)
	auth.POST("/reset-password", handlers.ResetPassword)

	api.GET("/notifications/vapid-public-key", handlers.GetVapidPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())

	users := protected.Group("/users")
	users.GET("/me", handlers.GetMe)
	users.GET("/profile", handlers.GetMe)
	users.PUT("/profile", handlers.UpdateProfile)
	users.PUT("/password", handlers.UpdatePassword)
	users.POST("/avatar", handlers.UploadAvatar)
	users.GET("/:username", handlers.GetUserByUsername)
	users.POST("/follow/:userId", handlers.FollowUser)
	users.POST("/unfollow/:userId", handlers.UnfollowUser)

	messages := protected.Group("/messages")
	messages.GET("/conversations", handlers.GetConversations)
	messages.POST("/conversations", handlers.CreateConversation)
	messages.GET("/:conversationId", handlers.GetMessages)
	messages.POST("/:conversationId", handlers.SendMessage)

	posts := protected.Group("/posts")
	posts.POST("", handlers.CreatePost)
	posts.GET("/feed", handlers.GetFeed)
	posts.GET("/saved", handlers.GetSavedPosts)
	posts.GET("/user/:userId", handlers.GetUserPosts)
	posts.POST("/:postId/like", handlers.LikePost)
	posts.POST("/:postId/unlike", handlers.UnlikePost)
	posts.POST("/:postId/comments", handlers.AddComment)
	posts.POST("/:postId/save", handlers.SavePost)
	posts.POST("/:postId/unsave", handlers.UnsavePost)

	stories := protected.Group("/stories")
	stories.POST("", handlers.CreateStory)
	stories.GET("", handlers.GetStories)
	stories.POST("/:storyId/view", handlers.ViewStory)

	notifications := protected.Group("/notifications")
	notifications.POST("/subscribe", handlers.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(http.StatusNotFound, gin.H{"message": "Endpoint not found", "path": c.Request.URL.Path})
			return
		}
		c.Next()
	})

	return router
}
