package services

import (
  "context"
  "errors"
  "fmt"
  "sort"
  "strings"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/repos"
  "github.com/pramod/validator-backend/internal/types"
)

// ViewScope is how much of the report corpus a viewer may see.
type ViewScope string

const (
  ScopeGlobal     ViewScope = "global"
  ScopeEnterprise ViewScope = "enterprise"
  ScopeDepartment ViewScope = "department"
  ScopeOwn        ViewScope = "own"
)

// ViewerContext carries the resolved identity and scope of the caller
// through every history call. It is a value, resolved per request; the
// service holds no viewer state between calls.
type ViewerContext struct {
  UserID       uuid.UUID
  Role         string
  EnterpriseID string
  Department   string
  Scope        ViewScope
}

type HistoryPage struct {
  Reports    []*types.Report
  NextCursor string
  HasMore    bool
}

var ErrInvalidCursor = errors.New("invalid cursor")

const loadAllTimeout = 15 * time.Second

type HistoryService interface {
  ResolveViewer(ctx context.Context, userID uuid.UUID) (ViewerContext, error)
  Page(ctx context.Context, viewer ViewerContext, cursor string, pageSize int) (*HistoryPage, error)
  LoadAll(ctx context.Context, viewer ViewerContext) ([]*types.Report, error)
}

type historyService struct {
  db             *gorm.DB
  log            *logger.Logger
  reportRepo     repos.ReportRepo
  userRepo       repos.UserRepo
  permissionRepo repos.PermissionRepo
}

func NewHistoryService(db *gorm.DB, log *logger.Logger, reportRepo repos.ReportRepo, userRepo repos.UserRepo, permissionRepo repos.PermissionRepo) HistoryService {
  serviceLog := log.With("service", "HistoryService")
  return &historyService{
    db:             db,
    log:            serviceLog,
    reportRepo:     reportRepo,
    userRepo:       userRepo,
    permissionRepo: permissionRepo,
  }
}

// ResolveViewer derives the scope in strict precedence order: super admin
// sees everything, enterprise admin sees the enterprise, then the stored
// permissions widen a regular user to enterprise or department, and the
// fallback is always own-only. Standalone users (no enterprise) never
// escape own-only.
func (s *historyService) ResolveViewer(ctx context.Context, userID uuid.UUID) (ViewerContext, error) {
  if userID == uuid.Nil {
    return ViewerContext{}, apierr.Unauthenticated(fmt.Errorf("user id required"))
  }

  user, err := s.userRepo.GetByID(ctx, nil, userID)
  if err != nil {
    return ViewerContext{}, apierr.TransientIO(err)
  }
  if user == nil {
    return ViewerContext{}, apierr.NotFound(fmt.Errorf("user %s not found", userID))
  }

  viewer := ViewerContext{
    UserID:       user.ID,
    Role:         user.Role,
    EnterpriseID: user.EnterpriseID,
    Department:   user.Department,
    Scope:        ScopeOwn,
  }

  if user.Role == types.RoleSuperAdmin {
    viewer.Scope = ScopeGlobal
    return viewer, nil
  }
  if user.IsStandalone() {
    return viewer, nil
  }
  if user.Role == types.RoleEnterpriseAdmin {
    viewer.Scope = ScopeEnterprise
    return viewer, nil
  }

  perm, err := s.permissionRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    s.log.Warn("Permission lookup failed, falling back to own scope", "error", err)
    return viewer, nil
  }
  if perm == nil {
    return viewer, nil
  }
  if perm.Department != "" {
    viewer.Department = perm.Department
  }
  if perm.CanViewAllAssessments {
    viewer.Scope = ScopeEnterprise
  } else if perm.CanViewDepartmentAssessments {
    viewer.Scope = ScopeDepartment
  }
  return viewer, nil
}

// Page returns one keyset page ordered (completed_at DESC, id DESC). The
// repo is asked for one row more than the page size; the extra row only
// proves there is another page and is never returned. Department scope
// has no keyset shape of its own, so it filters the enterprise stream in
// memory and always answers in one page.
func (s *historyService) Page(ctx context.Context, viewer ViewerContext, cursor string, pageSize int) (*HistoryPage, error) {
  if viewer.UserID == uuid.Nil {
    return nil, apierr.Unauthenticated(fmt.Errorf("viewer required"))
  }
  if pageSize <= 0 {
    pageSize = 20
  }

  decoded, err := repos.DecodePageCursor(cursor)
  if err != nil {
    return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
  }

  if viewer.Scope == ScopeDepartment {
    all, err := s.reportRepo.ListByEnterprise(ctx, nil, viewer.EnterpriseID)
    if err != nil {
      return nil, apierr.TransientIO(err)
    }
    return &HistoryPage{Reports: filterByDepartment(all, viewer.Department)}, nil
  }

  var rows []*types.Report
  switch viewer.Scope {
  case ScopeGlobal:
    rows, err = s.reportRepo.PageAll(ctx, nil, decoded, pageSize+1)
  case ScopeEnterprise:
    rows, err = s.reportRepo.PageByEnterprise(ctx, nil, viewer.EnterpriseID, decoded, pageSize+1)
  default:
    rows, err = s.reportRepo.PageByUser(ctx, nil, viewer.UserID, decoded, pageSize+1)
  }
  if err != nil {
    return nil, apierr.TransientIO(err)
  }

  page := &HistoryPage{Reports: rows}
  if len(rows) > pageSize {
    page.Reports = rows[:pageSize]
    page.HasMore = true
  }
  if page.HasMore && len(page.Reports) > 0 {
    last := page.Reports[len(page.Reports)-1]
    next := repos.PageCursor{CompletedAt: last.CompletedAt, ID: last.ID}
    page.NextCursor = next.Encode()
  }
  return page, nil
}

// LoadAll fetches the viewer's entire accessible corpus for search mode,
// bounded so a slow gateway cannot hang the transition into search.
func (s *historyService) LoadAll(ctx context.Context, viewer ViewerContext) ([]*types.Report, error) {
  if viewer.UserID == uuid.Nil {
    return nil, apierr.Unauthenticated(fmt.Errorf("viewer required"))
  }

  loadCtx, cancel := context.WithTimeout(ctx, loadAllTimeout)
  defer cancel()

  var rows []*types.Report
  var err error
  switch viewer.Scope {
  case ScopeGlobal:
    rows, err = s.reportRepo.ListAll(loadCtx, nil)
  case ScopeEnterprise:
    rows, err = s.reportRepo.ListByEnterprise(loadCtx, nil, viewer.EnterpriseID)
  case ScopeDepartment:
    rows, err = s.reportRepo.ListByEnterprise(loadCtx, nil, viewer.EnterpriseID)
    if err == nil {
      rows = filterByDepartment(rows, viewer.Department)
    }
  default:
    rows, err = s.reportRepo.ListByUser(loadCtx, nil, viewer.UserID)
  }
  if err != nil {
    if errors.Is(err, context.DeadlineExceeded) {
      return nil, apierr.Timeout(err)
    }
    return nil, apierr.TransientIO(err)
  }
  return rows, nil
}

func filterByDepartment(reports []*types.Report, department string) []*types.Report {
  if department == "" {
    return []*types.Report{}
  }
  out := make([]*types.Report, 0, len(reports))
  for _, r := range reports {
    if strings.EqualFold(r.UserDepartment, department) {
      out = append(out, r)
    }
  }
  return out
}

// Sort keys as the filter sheet labels them.
const (
  SortDateNewest = "Date (Newest)"
  SortDateOldest = "Date (Oldest)"
  SortNameAsc    = "Name (A-Z)"
  SortNameDesc   = "Name (Z-A)"
  SortDomainAsc  = "Domain (A-Z)"
  SortDomainDesc = "Domain (Z-A)"
)

// Date range labels.
const (
  RangeToday     = "Today"
  RangeThisWeek  = "This Week"
  RangeThisMonth = "This Month"
  RangeAllTime   = "All Time"
)

// HistoryFilters is the full client-side refinement state. Apply runs the
// stages in fixed order: dedupe, domain, status, date range, free text,
// sort. Every stage is pure; the input slice is never mutated.
type HistoryFilters struct {
  Domains   []string
  Statuses  []string
  DateRange string
  Query     string
  SortBy    string
}

func (f HistoryFilters) Apply(reports []*types.Report, now time.Time) []*types.Report {
  filtered := dedupeByID(reports)

  if len(f.Domains) > 0 {
    kept := filtered[:0:0]
    for _, r := range filtered {
      for _, domain := range f.Domains {
        if matchesDomain(r.DomainID, r.DomainName, domain) {
          kept = append(kept, r)
          break
        }
      }
    }
    filtered = kept
  }

  // Everything in history is a completed report, so "In Progress" alone
  // matches nothing
  if len(f.Statuses) > 0 {
    hasCompleted := containsFold(f.Statuses, "Completed")
    hasInProgress := containsFold(f.Statuses, "In Progress")
    if !hasCompleted && hasInProgress {
      filtered = []*types.Report{}
    }
  }

  if f.DateRange != "" && f.DateRange != RangeAllTime {
    start := rangeStart(f.DateRange, now)
    kept := filtered[:0:0]
    for _, r := range filtered {
      if !r.CompletedAt.Before(start) {
        kept = append(kept, r)
      }
    }
    filtered = kept
  }

  if query := strings.ToLower(strings.TrimSpace(f.Query)); query != "" {
    kept := filtered[:0:0]
    for _, r := range filtered {
      if strings.Contains(strings.ToLower(r.AssessmentName), query) ||
        strings.Contains(strings.ToLower(r.FacilityName), query) ||
        strings.Contains(strings.ToLower(r.UserName), query) ||
        strings.Contains(strings.ToLower(r.DomainName), query) ||
        strings.Contains(strings.ToLower(r.SubDomainName), query) {
        kept = append(kept, r)
      }
    }
    filtered = kept
  }

  sorted := make([]*types.Report, len(filtered))
  copy(sorted, filtered)
  sortReports(sorted, f.SortBy)
  return sorted
}

func dedupeByID(reports []*types.Report) []*types.Report {
  seen := make(map[uuid.UUID]struct{}, len(reports))
  out := make([]*types.Report, 0, len(reports))
  for _, r := range reports {
    if _, ok := seen[r.ID]; ok {
      continue
    }
    seen[r.ID] = struct{}{}
    out = append(out, r)
  }
  return out
}

// matchesDomain accepts either the dataset's id prefixes or the display
// names users actually see.
func matchesDomain(domainID, domainName, filterDomain string) bool {
  id := strings.ToLower(domainID)
  name := strings.ToLower(domainName)
  switch filterDomain {
  case "Quality Unit":
    return strings.Contains(id, "qu_") || strings.Contains(name, "quality")
  case "Packaging & Labeling":
    return strings.Contains(id, "pl_") || strings.Contains(name, "packaging") || strings.Contains(name, "labeling")
  case "Production":
    return strings.Contains(id, "pr_") || strings.Contains(name, "production") || strings.Contains(name, "manufacturing")
  case "Materials":
    return strings.Contains(id, "mt_") || strings.Contains(name, "material")
  case "Laboratory Systems":
    return strings.Contains(id, "lab_") || strings.Contains(name, "laboratory")
  case "Facilities & Equipment":
    return strings.Contains(id, "fe_") || strings.Contains(name, "facilities") || strings.Contains(name, "equipment")
  case "Custom":
    return domainID == types.DomainIDCustom || strings.Contains(name, "custom")
  default:
    return false
  }
}

func containsFold(values []string, target string) bool {
  for _, v := range values {
    if strings.EqualFold(v, target) {
      return true
    }
  }
  return false
}

// rangeStart returns the midnight boundary of the selected range. Weeks
// start on Monday.
func rangeStart(dateRange string, now time.Time) time.Time {
  midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
  switch dateRange {
  case RangeToday:
    return midnight
  case RangeThisWeek:
    weekday := int(midnight.Weekday())
    if weekday == 0 {
      weekday = 7
    }
    return midnight.AddDate(0, 0, -(weekday - 1))
  case RangeThisMonth:
    return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
  default:
    return time.Time{}
  }
}

func sortReports(reports []*types.Report, sortBy string) {
  switch sortBy {
  case SortDateOldest:
    sort.SliceStable(reports, func(i, j int) bool {
      return reports[i].CompletedAt.Before(reports[j].CompletedAt)
    })
  case SortNameAsc:
    sort.SliceStable(reports, func(i, j int) bool {
      return strings.ToLower(reports[i].AssessmentName) < strings.ToLower(reports[j].AssessmentName)
    })
  case SortNameDesc:
    sort.SliceStable(reports, func(i, j int) bool {
      return strings.ToLower(reports[i].AssessmentName) > strings.ToLower(reports[j].AssessmentName)
    })
  case SortDomainAsc:
    sort.SliceStable(reports, func(i, j int) bool {
      return strings.ToLower(reports[i].DomainName) < strings.ToLower(reports[j].DomainName)
    })
  case SortDomainDesc:
    sort.SliceStable(reports, func(i, j int) bool {
      return strings.ToLower(reports[i].DomainName) > strings.ToLower(reports[j].DomainName)
    })
  default:
    sort.SliceStable(reports, func(i, j int) bool {
      return reports[i].CompletedAt.After(reports[j].CompletedAt)
    })
  }
}
