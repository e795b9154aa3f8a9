package services

import (
  "context"
  "sync"
  "time"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
)

const searchDebounce = 300 * time.Millisecond

// HistoryEngine is one viewer's stateful history session. It runs in two
// modes: paged (keyset pages accumulate as the viewer scrolls) and search
// (the whole accessible corpus held in memory, refined locally). Entering
// search loads the corpus once; clearing the query keeps serving it and
// only stops applying the text filter, so everything stays visible and
// paging stays off until an explicit Reload.
type HistoryEngine struct {
  log      *logger.Logger
  svc      HistoryService
  viewer   ViewerContext
  pageSize int
  debounce time.Duration

  mu           sync.Mutex
  timer        *time.Timer
  reports      []*types.Report
  corpus       []*types.Report
  filtered     []*types.Report
  cursor       string
  hasMore      bool
  searchMode   bool
  corpusLoaded bool
  filters      HistoryFilters
}

func NewHistoryEngine(log *logger.Logger, svc HistoryService, viewer ViewerContext, pageSize int) *HistoryEngine {
  return &HistoryEngine{
    log:      log.With("service", "HistoryEngine"),
    svc:      svc,
    viewer:   viewer,
    pageSize: pageSize,
    debounce: searchDebounce,
  }
}

// Load fetches the first page and resets pagination state.
func (e *HistoryEngine) Load(ctx context.Context) error {
  page, err := e.svc.Page(ctx, e.viewer, "", e.pageSize)
  if err != nil {
    return err
  }
  e.mu.Lock()
  defer e.mu.Unlock()
  e.reports = page.Reports
  e.cursor = page.NextCursor
  e.hasMore = page.HasMore
  e.applyLocked()
  return nil
}

// LoadMore appends the next page. A no-op when everything is loaded or
// once the corpus is in memory (it already holds every report).
func (e *HistoryEngine) LoadMore(ctx context.Context) error {
  e.mu.Lock()
  if e.searchMode || e.corpusLoaded || !e.hasMore {
    e.mu.Unlock()
    return nil
  }
  cursor := e.cursor
  e.mu.Unlock()

  page, err := e.svc.Page(ctx, e.viewer, cursor, e.pageSize)
  if err != nil {
    return err
  }
  e.mu.Lock()
  defer e.mu.Unlock()
  e.reports = append(e.reports, page.Reports...)
  e.cursor = page.NextCursor
  e.hasMore = page.HasMore
  e.applyLocked()
  return nil
}

// SetQuery flips between paged and search mode. The mode transition and a
// first refinement are immediate; the text filter is then reapplied after
// the debounce window so a fast typist doesn't thrash the pipeline.
func (e *HistoryEngine) SetQuery(ctx context.Context, query string) error {
  e.mu.Lock()
  entering := query != "" && !e.searchMode
  e.filters.Query = query
  e.searchMode = query != ""
  needLoad := entering && !e.corpusLoaded
  e.mu.Unlock()

  if needLoad {
    corpus, err := e.svc.LoadAll(ctx, e.viewer)
    if err != nil {
      e.mu.Lock()
      e.searchMode = false
      e.mu.Unlock()
      return err
    }
    e.mu.Lock()
    e.corpus = corpus
    e.corpusLoaded = true
    e.mu.Unlock()
  }

  e.mu.Lock()
  defer e.mu.Unlock()
  e.applyLocked()
  if e.timer != nil {
    e.timer.Stop()
  }
  if e.debounce > 0 {
    e.timer = time.AfterFunc(e.debounce, func() {
      e.mu.Lock()
      defer e.mu.Unlock()
      e.applyLocked()
    })
  }
  return nil
}

func (e *HistoryEngine) SetFilters(f HistoryFilters) {
  e.mu.Lock()
  defer e.mu.Unlock()
  query := e.filters.Query
  e.filters = f
  e.filters.Query = query
  e.applyLocked()
}

// Reload drops the cached corpus and refetches whatever the current mode
// needs.
func (e *HistoryEngine) Reload(ctx context.Context) error {
  e.mu.Lock()
  e.corpus = nil
  e.corpusLoaded = false
  searchMode := e.searchMode
  e.mu.Unlock()

  if searchMode {
    corpus, err := e.svc.LoadAll(ctx, e.viewer)
    if err != nil {
      return err
    }
    e.mu.Lock()
    defer e.mu.Unlock()
    e.corpus = corpus
    e.corpusLoaded = true
    e.applyLocked()
    return nil
  }
  return e.Load(ctx)
}

func (e *HistoryEngine) Snapshot() []*types.Report {
  e.mu.Lock()
  defer e.mu.Unlock()
  out := make([]*types.Report, len(e.filtered))
  copy(out, e.filtered)
  return out
}

func (e *HistoryEngine) HasMore() bool {
  e.mu.Lock()
  defer e.mu.Unlock()
  return !e.searchMode && !e.corpusLoaded && e.hasMore
}

func (e *HistoryEngine) InSearchMode() bool {
  e.mu.Lock()
  defer e.mu.Unlock()
  return e.searchMode
}

func (e *HistoryEngine) applyLocked() {
  source := e.reports
  if e.corpusLoaded {
    source = e.corpus
  }
  e.filtered = e.filters.Apply(source, time.Now())
}
