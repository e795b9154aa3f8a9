package repos

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
)

type PermissionRepo interface {
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPermission, error)
  Upsert(ctx context.Context, tx *gorm.DB, row *types.UserPermission) error
}

type permissionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPermissionRepo(db *gorm.DB, baseLog *logger.Logger) PermissionRepo {
  repoLog := baseLog.With("repo", "PermissionRepo")
  return &permissionRepo{db: db, log: repoLog}
}

func (r *permissionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPermission, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if userID == uuid.Nil {
    return nil, nil
  }

  var row types.UserPermission
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    First(&row).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &row, nil
}

func (r *permissionRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.UserPermission) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if row == nil {
    return nil
  }

  // One permission row per user
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", row.UserID).
    Assign(row).
    FirstOrCreate(row).Error; err != nil {
    return err
  }
  return nil
}
