package domain

import "time"

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunLogEntry is the append-only audit record of one pipeline run,
// written once at the end of the run.
type RunLogEntry struct {
	RunID            uint      `gorm:"primaryKey;autoIncrement" json:"run_id"`
	DagID            string    `gorm:"type:text;not null;index" json:"dag_id"`
	TaskID           string    `gorm:"type:text;not null" json:"task_id"`
	SourceName       string    `gorm:"type:text;not null;index" json:"source_name"`
	Status           RunStatus `gorm:"type:text;not null" json:"status"`
	RecordsExtracted int       `gorm:"default:0" json:"records_extracted"`
	RecordsValidated int       `gorm:"default:0" json:"records_validated"`
	RecordsLoaded    int       `gorm:"default:0" json:"records_loaded"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	RunEndTime       time.Time `json:"run_end_time"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for RunLogEntry.
func (RunLogEntry) TableName() string {
	return "etl_run_log"
}
