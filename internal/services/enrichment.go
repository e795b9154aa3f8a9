package services

import (
  "context"
  "fmt"
  "time"
  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/clients/redis"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/repos"
  "github.com/pramod/validator-backend/internal/types"
)

const (
  enrichmentWorkers = 4
  enrichmentLockTTL = 30 * time.Second
)

// EnrichmentService opportunistically resolves reports whose summary is
// still pending or failed-with-texts. It is safe to trigger from anywhere
// at any time: every write is conditional on the report still being
// unresolved, so concurrent scans and a concurrent finalize converge on
// the same terminal state.
type EnrichmentService interface {
  ProcessPending(ctx context.Context, userID uuid.UUID) error
}

type enrichmentService struct {
  db           *gorm.DB
  log          *logger.Logger
  reportRepo   repos.ReportRepo
  narrative    NarrativeClient
  connectivity ConnectivityMonitor
  scanLock     redis.ScanLock
}

func NewEnrichmentService(db *gorm.DB, log *logger.Logger, reportRepo repos.ReportRepo, narrative NarrativeClient, connectivity ConnectivityMonitor, scanLock redis.ScanLock) EnrichmentService {
  serviceLog := log.With("service", "EnrichmentService")
  if scanLock == nil {
    scanLock = redis.NoopScanLock{}
  }
  return &enrichmentService{
    db:           db,
    log:          serviceLog,
    reportRepo:   reportRepo,
    narrative:    narrative,
    connectivity: connectivity,
    scanLock:     scanLock,
  }
}

func (s *enrichmentService) ProcessPending(ctx context.Context, userID uuid.UUID) error {
  if userID == uuid.Nil {
    return apierr.Unauthenticated(fmt.Errorf("user id required"))
  }
  if !s.connectivity.IsOnline() {
    s.log.Debug("Offline, skipping enrichment scan")
    return nil
  }

  // Cross-replica dampening only; a lost lock or a dead redis never
  // blocks the scan
  lockKey := "scan:" + userID.String()
  acquired, err := s.scanLock.TryAcquire(ctx, lockKey, enrichmentLockTTL)
  if err != nil {
    s.log.Debug("Scan lock unavailable, proceeding without it", "error", err)
  } else if !acquired {
    s.log.Debug("Another replica is scanning, skipping", "user_id", userID)
    return nil
  } else {
    defer func() {
      if err := s.scanLock.Release(context.WithoutCancel(ctx), lockKey); err != nil {
        s.log.Debug("Scan lock release failed", "error", err)
      }
    }()
  }

  reports, err := s.reportRepo.ListUnresolvedByUser(ctx, nil, userID)
  if err != nil {
    return apierr.TransientIO(err)
  }
  if len(reports) == 0 {
    return nil
  }
  s.log.Info("Enrichment scan found unresolved reports", "user_id", userID, "count", len(reports))

  group, groupCtx := errgroup.WithContext(ctx)
  group.SetLimit(enrichmentWorkers)
  for _, report := range reports {
    report := report
    group.Go(func() error {
      s.enrichOne(groupCtx, report)
      return nil
    })
  }
  return group.Wait()
}

func (s *enrichmentService) enrichOne(ctx context.Context, report *types.Report) {
  questionTexts := report.QuestionTextMap()
  if len(questionTexts) == 0 {
    // Nothing to feed the narrative service with; finalize never
    // captured texts for this one
    s.log.Warn("Report has no question texts, leaving unresolved", "report_id", report.ID)
    return
  }

  responses := report.ResponseMap()
  qa := make(map[string]QA, len(responses))
  for questionID, answer := range responses {
    text, ok := questionTexts[questionID]
    if !ok {
      text = "Question text not available"
    }
    qa[questionID] = QA{Text: text, Answer: answer}
  }

  summary, err := s.narrative.GenerateSummary(ctx, report.DomainName, report.SubDomainName, report.AssessmentName, qa)
  if err != nil {
    s.log.Warn("Narrative call failed during enrichment, will retry on a later scan", "report_id", report.ID, "error", err)
    return
  }

  taken, err := s.reportRepo.UpdateSummaryIfUnresolved(ctx, nil, report.ID, summary)
  if err != nil {
    s.log.Warn("Summary write failed", "report_id", report.ID, "error", err)
    return
  }
  if !taken {
    s.log.Debug("Report was resolved concurrently, discarding result", "report_id", report.ID)
    return
  }
  s.log.Info("Report summary enriched", "report_id", report.ID)
}
