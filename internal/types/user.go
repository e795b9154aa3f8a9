package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleSuperAdmin      = "SUPER_ADMIN"
	RoleEnterpriseAdmin = "ENTERPRISE_ADMIN"
	RoleUser            = "USER"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string         `gorm:"column:email;not null;index" json:"email"`
	DisplayName    string         `gorm:"column:display_name" json:"display_name"`
	Department     string         `gorm:"column:department" json:"department"`
	JobTitle       string         `gorm:"column:job_title" json:"job_title"`
	Role           string         `gorm:"column:role;not null;default:'USER'" json:"role"`
	EnterpriseID   string         `gorm:"column:enterprise_id;index" json:"enterprise_id"`
	EnterpriseName string         `gorm:"column:enterprise_name" json:"enterprise_name"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

// Standalone users have no enterprise and always see only their own work.
func (u *User) IsStandalone() bool {
	return u.EnterpriseID == ""
}
