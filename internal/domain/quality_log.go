package domain

import "time"

// QualityLogEntry is one persisted data-quality result, one row per
// validator invocation.
type QualityLogEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ValidationType string    `gorm:"type:text;not null;index" json:"validation_type"`
	ValidatorName  string    `gorm:"type:text;not null" json:"validation_rule"`
	PassedRecords  int       `gorm:"default:0" json:"passed_records"`
	FailedRecords  int       `gorm:"default:0" json:"failed_records"`
	// Details holds a truncated JSON summary of the error details.
	Details   string    `json:"validation_details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for QualityLogEntry.
func (QualityLogEntry) TableName() string {
	return "data_quality_log"
}
