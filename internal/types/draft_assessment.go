package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DraftAssessment struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	AssessmentName       string         `gorm:"column:assessment_name;not null" json:"assessment_name"`
	FacilityID           string         `gorm:"column:facility_id" json:"facility_id"`
	FacilityName         string         `gorm:"column:facility_name" json:"facility_name"`
	DomainID             string         `gorm:"column:domain_id" json:"domain_id"`
	DomainName           string         `gorm:"column:domain_name" json:"domain_name"`
	SubDomainID          string         `gorm:"column:sub_domain_id;not null" json:"sub_domain_id"`
	SubDomainName        string         `gorm:"column:sub_domain_name" json:"sub_domain_name"`
	IsCustom             bool           `gorm:"column:is_custom;not null;default:false" json:"is_custom"`
	CurrentQuestionIndex int            `gorm:"column:current_question_index;not null;default:0" json:"current_question_index"`
	TotalQuestions       int            `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	Responses            datatypes.JSON `gorm:"type:jsonb;column:responses" json:"responses"`
	QuestionTexts        datatypes.JSON `gorm:"type:jsonb;column:question_texts" json:"question_texts"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DraftAssessment) TableName() string { return "draft_assessment" }

func (d *DraftAssessment) ResponseMap() map[string]string {
	return decodeStringMap(d.Responses)
}

func (d *DraftAssessment) SetResponses(m map[string]string) {
	d.Responses = encodeStringMap(m)
}

func (d *DraftAssessment) QuestionTextMap() map[string]string {
	return decodeStringMap(d.QuestionTexts)
}

func (d *DraftAssessment) SetQuestionTexts(m map[string]string) {
	d.QuestionTexts = encodeStringMap(m)
}

func decodeStringMap(raw datatypes.JSON) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]string{}
	}
	return out
}

func encodeStringMap(m map[string]string) datatypes.JSON {
	if m == nil {
		m = map[string]string{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}
