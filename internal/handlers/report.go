package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/middleware"
  "github.com/pramod/validator-backend/internal/services"
  "github.com/pramod/validator-backend/internal/types"
)

type ReportHandler struct {
  reportService     services.ReportService
  enrichmentService services.EnrichmentService
}

func NewReportHandler(reportService services.ReportService, enrichmentService services.EnrichmentService) *ReportHandler {
  return &ReportHandler{reportService: reportService, enrichmentService: enrichmentService}
}

func (rh *ReportHandler) Finalize(c *gin.Context) {
  var req struct {
    AssessmentName string            `json:"assessment_name"`
    FacilityID     string            `json:"facility_id"`
    FacilityName   string            `json:"facility_name"`
    DomainID       string            `json:"domain_id"`
    DomainName     string            `json:"domain_name"`
    SubDomainID    string            `json:"sub_domain_id"`
    SubDomainName  string            `json:"sub_domain_name"`
    IsCustom       bool              `json:"is_custom"`
    Responses      map[string]string `json:"responses"`
    QuestionTexts  map[string]string `json:"question_texts"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }

  viewerID := middleware.ViewerID(c)
  var report *types.Report
  var err error
  if req.IsCustom {
    report, err = rh.reportService.FinalizeCustom(c.Request.Context(), viewerID, req.SubDomainID, req.AssessmentName, req.Responses, req.QuestionTexts)
  } else {
    report, err = rh.reportService.Finalize(c.Request.Context(), services.FinalizeParams{
      UserID:         viewerID,
      AssessmentName: req.AssessmentName,
      FacilityID:     req.FacilityID,
      FacilityName:   req.FacilityName,
      DomainID:       req.DomainID,
      DomainName:     req.DomainName,
      SubDomainID:    req.SubDomainID,
      SubDomainName:  req.SubDomainName,
      Responses:      req.Responses,
      QuestionTexts:  req.QuestionTexts,
    })
  }
  if err != nil {
    // A finalized report may exist even when the persistence write
    // lost; hand both back so the client can keep the report visible
    if report != nil {
      c.JSON(http.StatusAccepted, gin.H{"report": report, "warning": err.Error()})
      return
    }
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"report": report})
}

func (rh *ReportHandler) Get(c *gin.Context) {
  reportID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
    return
  }
  report, err := rh.reportService.GetByID(c.Request.Context(), reportID)
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"report": report})
}

func (rh *ReportHandler) Enrich(c *gin.Context) {
  if err := rh.enrichmentService.ProcessPending(c.Request.Context(), middleware.ViewerID(c)); err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": "true"})
}
