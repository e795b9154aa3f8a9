package db

import (
  "fmt"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/utils"
  "github.com/pramod/validator-backend/internal/logger"
)

type SQLiteService struct {
  db *gorm.DB
  log *logger.Logger
}

// NewSQLiteService backs the engine with a local file (or :memory:) when
// DB_DRIVER=sqlite. Used for single-box deployments and tests.
func NewSQLiteService(log *logger.Logger) (*SQLiteService, error) {
  serviceLog := log.With("service", "SQLiteService")

  path := utils.GetEnv("SQLITE_PATH", "validator.db", log)

  log.Info("Opening SQLite database...", "path", path)
  db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to open SQLite database", "error", err)
    return nil, fmt.Errorf("Failed to open SQLite database: %w", err)
  }

  return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
  s.log.Info("Auto migrating sqlite tables...")
  if err := AutoMigrateAll(s.db); err != nil {
    s.log.Error("Auto migration failed for sqlite tables", "error", err)
    return err
  }
  return nil
}

func (s *SQLiteService) DB() *gorm.DB {
  return s.db
}
