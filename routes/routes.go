package routes

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"pulse/apperr"
	"pulse/handlers"
	"pulse/middleware"
	"pulse/response"
	"pulse/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Handler *handlers.Handler
	// Hub serves /ws when set.
	Hub     *websocket.Manager
	Limiter *middleware.IPRateLimiter
	Log     logrus.FieldLogger
}

func SetupRouter(d Deps) *gin.Engine {
	h := d.Handler
	cfg := h.Config

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := router.Group("/api")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter))
	}
	session := middleware.RequireSession(cfg.JWTSecret)

	api.GET("/health", h.Health)

	// Feed and posts
	api.GET("/feed", h.GetFeed)
	api.POST("/posts", h.CreatePost)
	api.GET("/posts/:postId", h.GetPost)
	api.PUT("/posts/:postId", h.UpdatePost)
	api.DELETE("/posts/:postId", h.DeletePost)
	api.POST("/posts/:postId/like", session, h.LikePost)
	api.POST("/posts/:postId/comment", h.AddComment)

	// Users
	api.GET("/users/:userId/profile", h.GetProfile)
	api.PUT("/users/:userId/profile", session, h.UpdateProfile)
	api.GET("/users/:userId/posts", h.GetUserPosts)

	// Auth
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/google/url", h.GoogleAuthURL)
	api.GET("/auth/google/callback", h.GoogleCallback)

	// Media and push
	api.POST("/uploads", session, h.UploadImage)
	api.GET("/push/vapid-public-key", h.VAPIDPublicKey)
	api.POST("/push/subscribe", session, h.SubscribePush)

	if d.Hub != nil {
		ws := websocket.Handler(d.Hub, func(r *http.Request) string {
			claims, err := middleware.ParseToken(cfg.JWTSecret, r.URL.Query().Get("token"))
			if err != nil {
				return ""
			}
			return claims.UserID
		})
		router.GET("/ws", func(c *gin.Context) {
			ws(c.Writer, c.Request)
		})
	}

	if cfg.StaticDir != "" {
		router.Static("/static", cfg.StaticDir)
	}

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") || cfg.StaticDir == "" || c.Request.Method != http.MethodGet {
			response.Error(c, nil, apperr.NotFound("Endpoint not found"))
			return
		}
		// Client-side routes of the bundled web app.
		c.File(filepath.Join(cfg.StaticDir, "index.html"))
	})

	return router
}
