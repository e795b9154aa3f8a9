package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
  "github.com/pramod/validator-backend/internal/handlers"
  "github.com/pramod/validator-backend/internal/middleware"
)

type RouterConfig struct {
  IdentityMiddleware *middleware.IdentityMiddleware
  DraftHandler       *handlers.DraftHandler
  ReportHandler      *handlers.ReportHandler
  HistoryHandler     *handlers.HistoryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
    AllowCredentials: true,
  }))
  router.Use(otelgin.Middleware("validator-backend"))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)

// ===============
// || Protected ||
// ===============
  api := router.Group("/api")
  api.Use(cfg.IdentityMiddleware.RequireViewer())
  // Drafts
  api.POST("/drafts/find-or-create", cfg.DraftHandler.FindOrCreate)
  api.PUT("/drafts/:id/autosave", cfg.DraftHandler.Autosave)
  api.GET("/drafts/:id", cfg.DraftHandler.Get)
  api.DELETE("/drafts/:id", cfg.DraftHandler.Delete)
  api.GET("/drafts", cfg.DraftHandler.List)
  // Reports
  api.POST("/reports/finalize", cfg.ReportHandler.Finalize)
  api.POST("/reports/search", cfg.HistoryHandler.Search)
  api.POST("/reports/enrich", cfg.ReportHandler.Enrich)
  api.GET("/reports", cfg.HistoryHandler.List)
  api.GET("/reports/:id", cfg.ReportHandler.Get)

  return router
}
