package services

import (
  "context"
  "fmt"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/repos"
  "github.com/pramod/validator-backend/internal/types"
)

// DraftParams identifies the session a user is opening. The natural key
// is (user, assessment, sub-domain, is_custom), plus facility for
// template assessments.
type DraftParams struct {
  UserID         uuid.UUID
  AssessmentName string
  FacilityID     string
  FacilityName   string
  DomainID       string
  DomainName     string
  SubDomainID    string
  SubDomainName  string
  IsCustom       bool
  TotalQuestions int
  QuestionTexts  map[string]string
}

const (
  MutationAnswer = "answer"
  MutationStep   = "step"
)

// Mutation is one autosave event: either an answer recorded against a
// question or a movement of the current step index.
type Mutation struct {
  Kind       string
  QuestionID string
  Answer     string
  StepIndex  int
}

func AnswerMutation(questionID, answer string) Mutation {
  return Mutation{Kind: MutationAnswer, QuestionID: questionID, Answer: answer}
}

func StepMutation(index int) Mutation {
  return Mutation{Kind: MutationStep, StepIndex: index}
}

type DraftService interface {
  FindOrCreate(ctx context.Context, params DraftParams) (*types.DraftAssessment, error)
  Autosave(ctx context.Context, draftID uuid.UUID, m Mutation) (*types.DraftAssessment, error)
  Restore(ctx context.Context, draftID uuid.UUID) (*types.DraftAssessment, error)
  Discard(ctx context.Context, draftID uuid.UUID) error
  ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.DraftAssessment, error)
}

type draftService struct {
  db        *gorm.DB
  log       *logger.Logger
  draftRepo repos.DraftRepo
}

func NewDraftService(db *gorm.DB, log *logger.Logger, draftRepo repos.DraftRepo) DraftService {
  serviceLog := log.With("service", "DraftService")
  return &draftService{db: db, log: serviceLog, draftRepo: draftRepo}
}

func (s *draftService) FindOrCreate(ctx context.Context, params DraftParams) (*types.DraftAssessment, error) {
  if params.UserID == uuid.Nil {
    return nil, apierr.Unauthenticated(fmt.Errorf("user id required"))
  }

  existing, err := s.draftRepo.FindByNaturalKey(ctx, nil, params.UserID, params.AssessmentName, params.SubDomainID, params.IsCustom, params.FacilityID)
  if err != nil {
    s.log.Warn("Draft natural-key lookup failed", "error", err)
    return nil, apierr.TransientIO(err)
  }
  if existing != nil {
    return existing, nil
  }

  now := time.Now().UTC()
  draft := &types.DraftAssessment{
    ID:             uuid.New(),
    UserID:         params.UserID,
    AssessmentName: params.AssessmentName,
    FacilityID:     params.FacilityID,
    FacilityName:   params.FacilityName,
    DomainID:       params.DomainID,
    DomainName:     params.DomainName,
    SubDomainID:    params.SubDomainID,
    SubDomainName:  params.SubDomainName,
    IsCustom:       params.IsCustom,
    TotalQuestions: params.TotalQuestions,
    CreatedAt:      now,
    UpdatedAt:      now,
  }
  draft.SetResponses(map[string]string{})
  draft.SetQuestionTexts(params.QuestionTexts)

  if err := s.draftRepo.Upsert(ctx, nil, draft); err != nil {
    s.log.Warn("Draft create failed", "error", err)
    return nil, apierr.TransientIO(err)
  }
  s.log.Debug("Draft created", "draft_id", draft.ID, "user_id", params.UserID)
  return draft, nil
}

func (s *draftService) Autosave(ctx context.Context, draftID uuid.UUID, m Mutation) (*types.DraftAssessment, error) {
  draft, err := s.draftRepo.GetByID(ctx, nil, draftID)
  if err != nil {
    return nil, apierr.TransientIO(err)
  }
  if draft == nil {
    return nil, apierr.NotFound(fmt.Errorf("draft %s not found", draftID))
  }

  switch m.Kind {
  case MutationAnswer:
    if m.QuestionID == "" {
      return nil, apierr.InvalidArgument(fmt.Errorf("question id required for answer mutation"))
    }
    if !types.ValidAnswer(m.Answer) {
      return nil, apierr.InvalidArgument(fmt.Errorf("unknown answer %q for question %s", m.Answer, m.QuestionID))
    }
    responses := draft.ResponseMap()
    responses[m.QuestionID] = m.Answer
    draft.SetResponses(responses)
  case MutationStep:
    if m.StepIndex < 0 {
      return nil, apierr.InvalidArgument(fmt.Errorf("step index must not be negative"))
    }
    draft.CurrentQuestionIndex = m.StepIndex
  default:
    return nil, apierr.InvalidArgument(fmt.Errorf("unknown mutation kind %q", m.Kind))
  }
  draft.UpdatedAt = time.Now().UTC()

  // Every event writes the full snapshot; no batching, no debounce
  if err := s.draftRepo.Upsert(ctx, nil, draft); err != nil {
    s.log.Warn("Autosave write failed", "draft_id", draftID, "error", err)
    return nil, apierr.TransientIO(err)
  }
  return draft, nil
}

func (s *draftService) Restore(ctx context.Context, draftID uuid.UUID) (*types.DraftAssessment, error) {
  draft, err := s.draftRepo.GetByID(ctx, nil, draftID)
  if err != nil {
    return nil, apierr.TransientIO(err)
  }
  if draft == nil {
    return nil, apierr.NotFound(fmt.Errorf("draft %s not found", draftID))
  }
  return draft, nil
}

func (s *draftService) Discard(ctx context.Context, draftID uuid.UUID) error {
  if err := s.draftRepo.DeleteByID(ctx, nil, draftID); err != nil {
    s.log.Warn("Draft discard failed", "draft_id", draftID, "error", err)
    return apierr.TransientIO(err)
  }
  return nil
}

func (s *draftService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.DraftAssessment, error) {
  if userID == uuid.Nil {
    return nil, apierr.Unauthenticated(fmt.Errorf("user id required"))
  }
  drafts, err := s.draftRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, apierr.TransientIO(err)
  }
  return drafts, nil
}
