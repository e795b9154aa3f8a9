package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AI summary lifecycle. A report is born pending when the narrative call
// could not be attempted, completed when a summary was produced, and
// failed when the call was attempted and lost (or never had question
// texts to work with).
const (
	SummaryPending   = "pending"
	SummaryCompleted = "completed"
	SummaryFailed    = "failed"
)

// DomainIDCustom marks template-free assessments; they carry no facility
// in their identity.
const DomainIDCustom = "custom"

type Report struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail          string         `gorm:"column:user_email" json:"user_email"`
	UserName           string         `gorm:"column:user_name" json:"user_name"`
	UserDepartment     string         `gorm:"column:user_department" json:"user_department"`
	UserJobTitle       string         `gorm:"column:user_job_title" json:"user_job_title"`
	EnterpriseID       string         `gorm:"column:enterprise_id;index" json:"enterprise_id"`
	EnterpriseName     string         `gorm:"column:enterprise_name" json:"enterprise_name"`
	AssessmentName     string         `gorm:"column:assessment_name;not null" json:"assessment_name"`
	FacilityID         string         `gorm:"column:facility_id" json:"facility_id"`
	FacilityName       string         `gorm:"column:facility_name" json:"facility_name"`
	DomainID           string         `gorm:"column:domain_id" json:"domain_id"`
	DomainName         string         `gorm:"column:domain_name" json:"domain_name"`
	SubDomainID        string         `gorm:"column:sub_domain_id;not null" json:"sub_domain_id"`
	SubDomainName      string         `gorm:"column:sub_domain_name" json:"sub_domain_name"`
	TotalQuestions     int            `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	CompliantCount     int            `gorm:"column:compliant_count;not null;default:0" json:"compliant_count"`
	NonCompliantCount  int            `gorm:"column:non_compliant_count;not null;default:0" json:"non_compliant_count"`
	NotApplicableCount int            `gorm:"column:not_applicable_count;not null;default:0" json:"not_applicable_count"`
	CompletedAt        time.Time      `gorm:"column:completed_at;not null;index" json:"completed_at"`
	Responses          datatypes.JSON `gorm:"type:jsonb;column:responses" json:"responses"`
	QuestionTexts      datatypes.JSON `gorm:"type:jsonb;column:question_texts" json:"question_texts"`
	AISummary          string         `gorm:"column:ai_summary" json:"ai_summary"`
	AISummaryStatus    string         `gorm:"column:ai_summary_status;not null;default:'pending'" json:"ai_summary_status"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Report) TableName() string { return "report" }

func (r *Report) ResponseMap() map[string]string {
	return decodeStringMap(r.Responses)
}

func (r *Report) SetResponses(m map[string]string) {
	r.Responses = encodeStringMap(m)
}

func (r *Report) QuestionTextMap() map[string]string {
	return decodeStringMap(r.QuestionTexts)
}

func (r *Report) SetQuestionTexts(m map[string]string) {
	r.QuestionTexts = encodeStringMap(m)
}

// IsCustom reports whether the report belongs to a template-free
// assessment, which relaxes the facility part of its identity.
func (r *Report) IsCustom() bool {
	return r.DomainID == DomainIDCustom || r.DomainID == ""
}

// SummaryResolved is true once the report no longer needs enrichment.
func (r *Report) SummaryResolved() bool {
	return r.AISummaryStatus == SummaryCompleted && r.AISummary != ""
}
