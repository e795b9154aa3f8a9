package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
)

type QuestionRepo interface {
  GetBySubDomainID(ctx context.Context, tx *gorm.DB, subDomainID string) ([]*types.Question, error)
}

type questionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
  repoLog := baseLog.With("repo", "QuestionRepo")
  return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) GetBySubDomainID(ctx context.Context, tx *gorm.DB, subDomainID string) ([]*types.Question, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Question
  if subDomainID == "" {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("sub_domain_id = ?", subDomainID).
    Order("order_index ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
