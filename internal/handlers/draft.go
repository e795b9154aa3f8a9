package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/middleware"
  "github.com/pramod/validator-backend/internal/services"
)

type DraftHandler struct {
  draftService services.DraftService
}

func NewDraftHandler(draftService services.DraftService) *DraftHandler {
  return &DraftHandler{draftService: draftService}
}

func (dh *DraftHandler) FindOrCreate(c *gin.Context) {
  var req struct {
    AssessmentName string            `json:"assessment_name"`
    FacilityID     string            `json:"facility_id"`
    FacilityName   string            `json:"facility_name"`
    DomainID       string            `json:"domain_id"`
    DomainName     string            `json:"domain_name"`
    SubDomainID    string            `json:"sub_domain_id"`
    SubDomainName  string            `json:"sub_domain_name"`
    IsCustom       bool              `json:"is_custom"`
    TotalQuestions int               `json:"total_questions"`
    QuestionTexts  map[string]string `json:"question_texts"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  draft, err := dh.draftService.FindOrCreate(c.Request.Context(), services.DraftParams{
    UserID:         middleware.ViewerID(c),
    AssessmentName: req.AssessmentName,
    FacilityID:     req.FacilityID,
    FacilityName:   req.FacilityName,
    DomainID:       req.DomainID,
    DomainName:     req.DomainName,
    SubDomainID:    req.SubDomainID,
    SubDomainName:  req.SubDomainName,
    IsCustom:       req.IsCustom,
    TotalQuestions: req.TotalQuestions,
    QuestionTexts:  req.QuestionTexts,
  })
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, draft)
}

func (dh *DraftHandler) Autosave(c *gin.Context) {
  draftID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
    return
  }
  var req struct {
    Kind       string `json:"kind"`
    QuestionID string `json:"question_id"`
    Answer     string `json:"answer"`
    StepIndex  int    `json:"step_index"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  draft, err := dh.draftService.Autosave(c.Request.Context(), draftID, services.Mutation{
    Kind:       req.Kind,
    QuestionID: req.QuestionID,
    Answer:     req.Answer,
    StepIndex:  req.StepIndex,
  })
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, draft)
}

func (dh *DraftHandler) Get(c *gin.Context) {
  draftID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
    return
  }
  draft, err := dh.draftService.Restore(c.Request.Context(), draftID)
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, draft)
}

func (dh *DraftHandler) Delete(c *gin.Context) {
  draftID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
    return
  }
  if err := dh.draftService.Discard(c.Request.Context(), draftID); err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (dh *DraftHandler) List(c *gin.Context) {
  drafts, err := dh.draftService.ListForUser(c.Request.Context(), middleware.ViewerID(c))
  if err != nil {
    c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}
