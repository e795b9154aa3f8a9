package repos

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
)

type DraftRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DraftAssessment, error)
  FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID string, isCustom bool, facilityID string) (*types.DraftAssessment, error)
  Upsert(ctx context.Context, tx *gorm.DB, row *types.DraftAssessment) error
  DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DraftAssessment, error)
}

type draftRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewDraftRepo(db *gorm.DB, baseLog *logger.Logger) DraftRepo {
  repoLog := baseLog.With("repo", "DraftRepo")
  return &draftRepo{db: db, log: repoLog}
}

func (r *draftRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DraftAssessment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return nil, nil
  }

  var row types.DraftAssessment
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&row).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &row, nil
}

// FindByNaturalKey resolves the draft identity: custom assessments key on
// (user, assessment, sub-domain, is_custom); template assessments add the
// facility. Newest write wins when duplicates exist.
func (r *draftRepo) FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID string, isCustom bool, facilityID string) (*types.DraftAssessment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if userID == uuid.Nil {
    return nil, nil
  }

  query := transaction.WithContext(ctx).
    Where("user_id = ? AND assessment_name = ? AND sub_domain_id = ? AND is_custom = ?",
      userID, assessmentName, subDomainID, isCustom)
  if !isCustom {
    query = query.Where("facility_id = ?", facilityID)
  }

  var row types.DraftAssessment
  if err := query.Order("updated_at DESC").First(&row).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &row, nil
}

func (r *draftRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.DraftAssessment) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if row == nil {
    return nil
  }

  // Full snapshot write per autosave event, keyed by id
  if err := transaction.WithContext(ctx).
    Where("id = ?", row.ID).
    Assign(row).
    FirstOrCreate(row).Error; err != nil {
    return err
  }
  return nil
}

func (r *draftRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return nil
  }

  // Discard is permanent, no soft-delete tombstone
  if err := transaction.WithContext(ctx).
    Unscoped().
    Where("id = ?", id).
    Delete(&types.DraftAssessment{}).Error; err != nil {
    return err
  }
  return nil
}

func (r *draftRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DraftAssessment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.DraftAssessment
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("updated_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
