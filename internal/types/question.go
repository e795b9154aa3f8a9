package types

import (
	"time"

	"gorm.io/gorm"
)

// Question is the catalog row behind a checklist item. IDs are the
// dataset's string identifiers (e.g. "qu_3", "lab_12"), not uuids.
type Question struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	SubDomainID string         `gorm:"column:sub_domain_id;not null;index" json:"sub_domain_id"`
	Text        string         `gorm:"column:text;not null" json:"text"`
	OrderIndex  int            `gorm:"column:order_index;not null;default:0" json:"order_index"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }
