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

type FinalizeParams struct {
  UserID         uuid.UUID
  AssessmentName string
  FacilityID     string
  FacilityName   string
  DomainID       string
  DomainName     string
  SubDomainID    string
  SubDomainName  string
  Responses      map[string]string
  QuestionTexts  map[string]string
}

type ReportService interface {
  Finalize(ctx context.Context, params FinalizeParams) (*types.Report, error)
  FinalizeCustom(ctx context.Context, userID uuid.UUID, assessmentID, assessmentName string, responses, questionTexts map[string]string) (*types.Report, error)
  GetByID(ctx context.Context, id uuid.UUID) (*types.Report, error)
}

type reportService struct {
  db           *gorm.DB
  log          *logger.Logger
  reportRepo   repos.ReportRepo
  userRepo     repos.UserRepo
  questionRepo repos.QuestionRepo
  callLogRepo  repos.AICallLogRepo
  narrative    NarrativeClient
  connectivity ConnectivityMonitor
}

func NewReportService(db *gorm.DB, log *logger.Logger, reportRepo repos.ReportRepo, userRepo repos.UserRepo, questionRepo repos.QuestionRepo, callLogRepo repos.AICallLogRepo, narrative NarrativeClient, connectivity ConnectivityMonitor) ReportService {
  serviceLog := log.With("service", "ReportService")
  return &reportService{
    db:           db,
    log:          serviceLog,
    reportRepo:   reportRepo,
    userRepo:     userRepo,
    questionRepo: questionRepo,
    callLogRepo:  callLogRepo,
    narrative:    narrative,
    connectivity: connectivity,
  }
}

// Finalize turns a finished answer set into the report of record. Calling
// it twice for the same assessment converges on one report: an existing
// resolved report is returned untouched, an unresolved one is regenerated
// in place (same id, same completion time) when the narrative service is
// reachable, and left alone when it is not.
func (s *reportService) Finalize(ctx context.Context, params FinalizeParams) (*types.Report, error) {
  if params.UserID == uuid.Nil {
    return nil, apierr.Unauthenticated(fmt.Errorf("user id required"))
  }
  // Unknown answer strings would silently fall out of the counters and
  // break compliant+non_compliant+not_applicable == total
  for questionID, answer := range params.Responses {
    if !types.ValidAnswer(answer) {
      return nil, apierr.InvalidArgument(fmt.Errorf("question %s has unknown answer %q", questionID, answer))
    }
  }

  online := s.connectivity.IsOnline()

  // Profile fields are decoration on the report; a lookup failure must
  // not block finalization
  var user *types.User
  if u, err := s.userRepo.GetByID(ctx, nil, params.UserID); err != nil {
    s.log.Warn("User lookup failed during finalize, continuing without profile", "error", err)
  } else {
    user = u
  }

  questionTexts := s.resolveQuestionTexts(ctx, params, online)

  existing, err := s.reportRepo.FindByNaturalKey(ctx, nil, params.UserID, params.AssessmentName, params.SubDomainID, params.FacilityID, params.DomainID)
  if err != nil {
    s.log.Warn("Report natural-key lookup failed", "error", err)
    return nil, apierr.TransientIO(err)
  }
  if existing != nil {
    if existing.SummaryResolved() {
      return existing, nil
    }
    if !online || len(questionTexts) == 0 {
      // Unresolved but nothing we can do right now; enrichment picks
      // it up later
      return existing, nil
    }
    // Regenerate in place: same identity, same completion time
  }

  summary, status := s.produceSummary(ctx, params, questionTexts, online)

  counts := types.CountAnswers(params.Responses)
  now := time.Now().UTC()

  report := &types.Report{
    ID:                 uuid.New(),
    UserID:             params.UserID,
    AssessmentName:     params.AssessmentName,
    FacilityID:         params.FacilityID,
    FacilityName:       params.FacilityName,
    DomainID:           params.DomainID,
    DomainName:         params.DomainName,
    SubDomainID:        params.SubDomainID,
    SubDomainName:      params.SubDomainName,
    TotalQuestions:     len(params.Responses),
    CompliantCount:     counts.Compliant,
    NonCompliantCount:  counts.NonCompliant,
    NotApplicableCount: counts.NotApplicable,
    CompletedAt:        now,
    AISummary:          summary,
    AISummaryStatus:    status,
    CreatedAt:          now,
    UpdatedAt:          now,
  }
  if existing != nil {
    report.ID = existing.ID
    report.CompletedAt = existing.CompletedAt
    report.CreatedAt = existing.CreatedAt
  }
  if user != nil {
    report.UserEmail = user.Email
    report.UserName = user.DisplayName
    report.UserDepartment = user.Department
    report.UserJobTitle = user.JobTitle
    report.EnterpriseID = user.EnterpriseID
    report.EnterpriseName = user.EnterpriseName
  }
  report.SetResponses(params.Responses)
  report.SetQuestionTexts(questionTexts)

  // The report is the caller's either way; a lost write surfaces as a
  // transient error alongside the fully formed value
  if err := s.reportRepo.Upsert(ctx, nil, report); err != nil {
    s.log.Error("Report persist failed", "report_id", report.ID, "error", err)
    return report, apierr.TransientIO(err)
  }
  return report, nil
}

// FinalizeCustom is the template-free path: no facility, domain pinned to
// "custom", and the assessment doubles as its own sub-domain.
func (s *reportService) FinalizeCustom(ctx context.Context, userID uuid.UUID, assessmentID, assessmentName string, responses, questionTexts map[string]string) (*types.Report, error) {
  return s.Finalize(ctx, FinalizeParams{
    UserID:         userID,
    AssessmentName: assessmentName,
    DomainID:       types.DomainIDCustom,
    DomainName:     "Custom Assessment",
    SubDomainID:    assessmentID,
    SubDomainName:  assessmentName,
    Responses:      responses,
    QuestionTexts:  questionTexts,
  })
}

func (s *reportService) GetByID(ctx context.Context, id uuid.UUID) (*types.Report, error) {
  report, err := s.reportRepo.GetByID(ctx, nil, id)
  if err != nil {
    return nil, apierr.TransientIO(err)
  }
  if report == nil {
    return nil, apierr.NotFound(fmt.Errorf("report %s not found", id))
  }
  return report, nil
}

// resolveQuestionTexts prefers the texts captured in the session. Without
// them the catalog is consulted, but only when online and never for more
// than ten seconds; an empty map is an acceptable outcome and downgrades
// the summary path.
func (s *reportService) resolveQuestionTexts(ctx context.Context, params FinalizeParams, online bool) map[string]string {
  if len(params.QuestionTexts) > 0 {
    return params.QuestionTexts
  }
  if !online {
    s.log.Warn("Offline with no question texts, summary will stay pending")
    return map[string]string{}
  }

  fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
  defer cancel()

  questions, err := s.questionRepo.GetBySubDomainID(fetchCtx, nil, params.SubDomainID)
  if err != nil {
    s.log.Warn("Question catalog fetch failed, proceeding without texts", "sub_domain_id", params.SubDomainID, "error", err)
    return map[string]string{}
  }
  texts := make(map[string]string, len(questions))
  for _, q := range questions {
    texts[q.ID] = q.Text
  }
  return texts
}

func (s *reportService) produceSummary(ctx context.Context, params FinalizeParams, questionTexts map[string]string, online bool) (string, string) {
  if !online {
    return "", types.SummaryPending
  }
  if len(questionTexts) == 0 {
    s.log.Warn("No question texts available, skipping narrative call", "sub_domain_id", params.SubDomainID)
    return "", types.SummaryFailed
  }

  qa := make(map[string]QA, len(params.Responses))
  for questionID, answer := range params.Responses {
    text, ok := questionTexts[questionID]
    if !ok {
      text = "Question text not available"
    }
    qa[questionID] = QA{Text: text, Answer: answer}
  }

  started := time.Now()
  summary, err := s.narrative.GenerateSummary(ctx, params.DomainName, params.SubDomainName, params.AssessmentName, qa)
  s.recordCall(ctx, time.Since(started), err)
  if err != nil {
    s.log.Warn("Narrative call failed at finalize", "error", err)
    placeholder := fmt.Sprintf("AI Summary generation failed: %s. Manual review recommended for compliance gaps.", err.Error())
    return placeholder, types.SummaryFailed
  }
  return summary, types.SummaryCompleted
}

func (s *reportService) recordCall(ctx context.Context, took time.Duration, callErr error) {
  if s.callLogRepo == nil {
    return
  }
  row := &types.AICallLog{
    ID:         uuid.New(),
    Model:      s.narrative.Model(),
    DurationMS: took.Milliseconds(),
    Success:    callErr == nil,
    CreatedAt:  time.Now().UTC(),
  }
  if callErr != nil {
    row.Error = callErr.Error()
  }
  if _, err := s.callLogRepo.Create(ctx, nil, []*types.AICallLog{row}); err != nil {
    s.log.Debug("AI call log write failed", "error", err)
  }
}
