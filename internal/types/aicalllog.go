package types

import (
  "time"
  "github.com/google/uuid"
)

type AICallLog struct {
  ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
  ReportID            *uuid.UUID        `gorm:"type:uuid;index" json:"report_id,omitempty"`
  Model               string            `gorm:"column:model;not null" json:"model"`
  DurationMS          int64             `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
  Success             bool              `gorm:"column:success;not null" json:"success"`
  Error               string            `gorm:"column:error" json:"error"`
  CreatedAt           time.Time         `gorm:"not null" json:"created_at"`
}

func (AICallLog) TableName() string {
  return "ai_call_log"
}
