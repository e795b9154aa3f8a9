package handlers

import (
  "errors"
  "net/http"
  "strconv"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/middleware"
  "github.com/pramod/validator-backend/internal/services"
)

type HistoryHandler struct {
  historyService services.HistoryService
}

func NewHistoryHandler(historyService services.HistoryService) *HistoryHandler {
  return &HistoryHandler{historyService: historyService}
}

func (hh *HistoryHandler) List(c *gin.Context) {
  viewer, err := hh.historyService.ResolveViewer(c.Request.Context(), middleware.ViewerID(c))
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }

  pageSize := 20
  if raw := c.Query("page_size"); raw != "" {
    if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
      pageSize = parsed
    }
  }

  page, err := hh.historyService.Page(c.Request.Context(), viewer, c.Query("cursor"), pageSize)
  if err != nil {
    if errors.Is(err, services.ErrInvalidCursor) {
      c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
      return
    }
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "reports":     page.Reports,
    "next_cursor": page.NextCursor,
    "has_more":    page.HasMore,
  })
}

func (hh *HistoryHandler) Search(c *gin.Context) {
  var req struct {
    Query     string   `json:"query"`
    Domains   []string `json:"domains"`
    Statuses  []string `json:"statuses"`
    DateRange string   `json:"date_range"`
    SortBy    string   `json:"sort_by"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }

  viewer, err := hh.historyService.ResolveViewer(c.Request.Context(), middleware.ViewerID(c))
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }

  corpus, err := hh.historyService.LoadAll(c.Request.Context(), viewer)
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }

  filters := services.HistoryFilters{
    Domains:   req.Domains,
    Statuses:  req.Statuses,
    DateRange: req.DateRange,
    Query:     req.Query,
    SortBy:    req.SortBy,
  }
  c.JSON(http.StatusOK, gin.H{"reports": filters.Apply(corpus, time.Now())})
}
