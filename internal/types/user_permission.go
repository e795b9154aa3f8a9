package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserPermission struct {
	ID                           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	EnterpriseID                 string         `gorm:"column:enterprise_id;index" json:"enterprise_id"`
	Department                   string         `gorm:"column:department" json:"department"`
	CanViewDepartmentAssessments bool           `gorm:"column:can_view_department_assessments;not null;default:false" json:"can_view_department_assessments"`
	CanViewAllAssessments        bool           `gorm:"column:can_view_all_assessments;not null;default:false" json:"can_view_all_assessments"`
	CreatedAt                    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt                    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt                    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserPermission) TableName() string { return "user_permission" }
