package repos

import (
  "context"
  "encoding/base64"
  "encoding/json"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
)

// PageCursor is the keyset position of the last row a page handed out.
// Opaque to callers; only this package reads its fields.
type PageCursor struct {
  CompletedAt time.Time `json:"completed_at"`
  ID          uuid.UUID `json:"id"`
}

func (c *PageCursor) Encode() string {
  if c == nil {
    return ""
  }
  raw, err := json.Marshal(c)
  if err != nil {
    return ""
  }
  return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodePageCursor(s string) (*PageCursor, error) {
  if s == "" {
    return nil, nil
  }
  raw, err := base64.RawURLEncoding.DecodeString(s)
  if err != nil {
    return nil, err
  }
  var c PageCursor
  if err := json.Unmarshal(raw, &c); err != nil {
    return nil, err
  }
  return &c, nil
}

type ReportRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error)
  FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID, facilityID, domainID string) (*types.Report, error)
  Upsert(ctx context.Context, tx *gorm.DB, row *types.Report) error
  UpdateSummaryIfUnresolved(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary string) (bool, error)
  PageByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cursor *PageCursor, limit int) ([]*types.Report, error)
  PageByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string, cursor *PageCursor, limit int) ([]*types.Report, error)
  PageAll(ctx context.Context, tx *gorm.DB, cursor *PageCursor, limit int) ([]*types.Report, error)
  ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error)
  ListByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string) ([]*types.Report, error)
  ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error)
  ListUnresolvedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error)
}

type reportRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
  repoLog := baseLog.With("repo", "ReportRepo")
  return &reportRepo{db: db, log: repoLog}
}

func (r *reportRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return nil, nil
  }

  var row types.Report
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

// FindByNaturalKey resolves the report identity. Custom assessments
// (domain_id "custom" or empty) drop the facility from the key.
func (r *reportRepo) FindByNaturalKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, assessmentName, subDomainID, facilityID, domainID string) (*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if userID == uuid.Nil {
    return nil, nil
  }

  query := transaction.WithContext(ctx).
    Where("user_id = ? AND assessment_name = ? AND sub_domain_id = ? AND domain_id = ?",
      userID, assessmentName, subDomainID, domainID)
  if domainID != types.DomainIDCustom && domainID != "" {
    query = query.Where("facility_id = ?", facilityID)
  }

  var row types.Report
  if err := query.Order("completed_at DESC").First(&row).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &row, nil
}

func (r *reportRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.Report) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if row == nil {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("id = ?", row.ID).
    Assign(row).
    FirstOrCreate(row).Error; err != nil {
    return err
  }
  return nil
}

// UpdateSummaryIfUnresolved is the compare-and-swap write of the enrichment
// pipeline: it only lands while the row is still pending or failed, so a
// concurrent finalize or scan that resolved the summary first wins and this
// write becomes a no-op. Returns whether the row was taken.
func (r *reportRepo) UpdateSummaryIfUnresolved(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return false, nil
  }

  res := transaction.WithContext(ctx).
    Model(&types.Report{}).
    Where("id = ? AND ai_summary_status IN ?", id, []string{types.SummaryPending, types.SummaryFailed}).
    Updates(map[string]interface{}{
      "ai_summary":        summary,
      "ai_summary_status": types.SummaryCompleted,
      "updated_at":        time.Now().UTC(),
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (r *reportRepo) PageByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cursor *PageCursor, limit int) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if userID == uuid.Nil {
    return results, nil
  }

  query := transaction.WithContext(ctx).Where("user_id = ?", userID)
  return page(query, cursor, limit)
}

func (r *reportRepo) PageByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string, cursor *PageCursor, limit int) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if enterpriseID == "" {
    return results, nil
  }

  query := transaction.WithContext(ctx).Where("enterprise_id = ?", enterpriseID)
  return page(query, cursor, limit)
}

func (r *reportRepo) PageAll(ctx context.Context, tx *gorm.DB, cursor *PageCursor, limit int) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return page(transaction.WithContext(ctx), cursor, limit)
}

// page applies the shared keyset ordering (completed_at DESC, id DESC as
// tie-break) and resumes after the cursor row when one is given.
func page(query *gorm.DB, cursor *PageCursor, limit int) ([]*types.Report, error) {
  if cursor != nil {
    query = query.Where(
      "completed_at < ? OR (completed_at = ? AND id < ?)",
      cursor.CompletedAt, cursor.CompletedAt, cursor.ID,
    )
  }
  var results []*types.Report
  if err := query.
    Order("completed_at DESC").
    Order("id DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *reportRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("completed_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *reportRepo) ListByEnterprise(ctx context.Context, tx *gorm.DB, enterpriseID string) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if enterpriseID == "" {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("enterprise_id = ?", enterpriseID).
    Order("completed_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *reportRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if err := transaction.WithContext(ctx).
    Order("completed_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *reportRepo) ListUnresolvedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Report
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND ai_summary_status IN ?", userID, []string{types.SummaryPending, types.SummaryFailed}).
    Order("completed_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
