package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/utils"
  "github.com/pramod/validator-backend/internal/db"
  redisclient "github.com/pramod/validator-backend/internal/clients/redis"
  "github.com/pramod/validator-backend/internal/observability"
  "github.com/pramod/validator-backend/internal/repos"
  "github.com/pramod/validator-backend/internal/services"
  "github.com/pramod/validator-backend/internal/handlers"
  "github.com/pramod/validator-backend/internal/middleware"
  "github.com/pramod/validator-backend/internal/server"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Tracing
  shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: "validator-backend",
    Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "", log),
  })
  if shutdownOtel != nil {
    defer func() {
      ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = shutdownOtel(ctx)
    }()
  }

  // Database
  var theDB *gorm.DB
  driver := utils.GetEnv("DB_DRIVER", "postgres", log)
  if driver == "sqlite" {
    sqliteService, err := db.NewSQLiteService(log)
    if err != nil {
      log.Error("SQLite init failed", "error", err)
      os.Exit(1)
    }
    if err = sqliteService.AutoMigrateAll(); err != nil {
      log.Warn("SQLite auto migration failed", "error", err)
    }
    theDB = sqliteService.DB()
  } else {
    postgresService, err := db.NewPostgresService(log)
    if err != nil {
      log.Error("Postgres init failed", "error", err)
      os.Exit(1)
    }
    if err = postgresService.AutoMigrateAll(); err != nil {
      log.Warn("Postgres auto migration failed", "error", err)
    }
    theDB = postgresService.DB()
  }

  // Repos
  log.Info("Setting up Repos from main...")
  draftRepo := repos.NewDraftRepo(theDB, log)
  reportRepo := repos.NewReportRepo(theDB, log)
  userRepo := repos.NewUserRepo(theDB, log)
  permissionRepo := repos.NewPermissionRepo(theDB, log)
  questionRepo := repos.NewQuestionRepo(theDB, log)
  aiCallLogRepo := repos.NewAICallLogRepo(theDB, log)

  // Redis (optional; enrichment runs undampened without it)
  var scanLock redisclient.ScanLock
  scanLock, err = redisclient.NewScanLock(log)
  if err != nil {
    log.Warn("Redis scan lock unavailable, enrichment scans run undampened", "error", err)
    scanLock = redisclient.NoopScanLock{}
  } else {
    defer scanLock.Close()
  }

  // Services
  log.Info("Setting up Services from main...")
  connectivity := services.NewConnectivityMonitor(log)
  narrativeClient, err := services.NewNarrativeClient(log)
  if err != nil {
    log.Error("Could not init NarrativeClient", "error", err)
    os.Exit(1)
  }
  draftService := services.NewDraftService(theDB, log, draftRepo)
  reportService := services.NewReportService(theDB, log, reportRepo, userRepo, questionRepo, aiCallLogRepo, narrativeClient, connectivity)
  enrichmentService := services.NewEnrichmentService(theDB, log, reportRepo, narrativeClient, connectivity, scanLock)
  historyService := services.NewHistoryService(theDB, log, reportRepo, userRepo, permissionRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  draftHandler := handlers.NewDraftHandler(draftService)
  reportHandler := handlers.NewReportHandler(reportService, enrichmentService)
  historyHandler := handlers.NewHistoryHandler(historyService)

  // Middleware
  log.Info("Setting up middleware from main...")
  identityMiddleware := middleware.NewIdentityMiddleware(log)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    IdentityMiddleware: identityMiddleware,
    DraftHandler:       draftHandler,
    ReportHandler:      reportHandler,
    HistoryHandler:     historyHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
