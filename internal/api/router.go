package api

import (
	"github.com/gin-gonic/gin"

	chathandler "github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api/chat"
	dochandler "github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api/document"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api/middleware"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/service"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	AllowOrigins        []string
	AuthRequired        bool
	GeneratorConfigured bool
	AuditConfigured     bool
}

// SetupRouter sets up the Gin router.
func SetupRouter(
	chatService *service.ChatService,
	documentService *service.DocumentService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check: the only anonymous-allowed endpoint.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"generator": cfg.GeneratorConfigured,
			"audit":     cfg.AuditConfigured,
		})
	})

	auth := middleware.Auth(cfg.AuthRequired)

	chatHandler := chathandler.NewHandler(chatService)
	chatGroup := r.Group("/chat")
	chatGroup.Use(auth)
	chatHandler.RegisterRoutes(chatGroup)

	documentHandler := dochandler.NewHandler(documentService)
	documentGroup := r.Group("/document")
	documentGroup.Use(auth)
	documentHandler.RegisterRoutes(documentGroup)

	return r
}
