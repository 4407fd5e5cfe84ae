package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/handlers"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins      []string
	AuthMiddleware    *middleware.AuthMiddleware
	AdminHandler      *handlers.AdminHandler
	CatalogHandler    *handlers.CatalogHandler
	MismatchHandler   *handlers.MismatchHandler
	RunsHandler       *handlers.RunsHandler
	ValidationHandler *handlers.ValidationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.GET("/products", cfg.CatalogHandler.ListProducts)
		api.POST("/admin/login", cfg.AdminHandler.Login)
	}

	// Protected
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("/products/:id", cfg.CatalogHandler.GetProduct)
		admin.GET("/mismatches", cfg.MismatchHandler.ListCases)
		admin.GET("/runs", cfg.RunsHandler.ListRuns)
		admin.POST("/runs/reconcile", cfg.RunsHandler.TriggerReconcile)
		admin.POST("/runs/ingest", cfg.RunsHandler.TriggerIngest)
		admin.POST("/validation-batches/:id/apply", cfg.ValidationHandler.ApplyBatch)
	}

	return router
}
