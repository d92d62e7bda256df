package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/domain"
)

// RunLogRepository persists pipeline run audit records.
type RunLogRepository struct {
	db *gorm.DB
}

// NewRunLogRepository creates a new RunLogRepository.
func NewRunLogRepository(db *gorm.DB) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// Create appends a run log entry and returns its opaque run ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: run record to persist; RunID is filled in on success.
// Returns:
//   - uint: assigned run ID.
//   - error: non-nil if the insert fails.
func (r *RunLogRepository) Create(ctx context.Context, entry *domain.RunLogEntry) (uint, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, err
	}
	return entry.RunID, nil
}

// ListRecent returns the most recent run entries, newest first.
func (r *RunLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.RunLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []domain.RunLogEntry
	err := r.db.WithContext(ctx).
		Order("run_id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListBySource returns run entries for one source, newest first.
func (r *RunLogRepository) ListBySource(ctx context.Context, source string, limit int) ([]domain.RunLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []domain.RunLogEntry
	err := r.db.WithContext(ctx).
		Where("source_name = ?", source).
		Order("run_id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
