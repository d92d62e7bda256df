package repository

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/domain"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/validate"
)

// detailsMaxLen bounds the stored error-details summary, matching the
// quality dashboard's column width.
const detailsMaxLen = 500

// QualityLogRepository persists validation results, one row each.
type QualityLogRepository struct {
	db *gorm.DB
}

// NewQualityLogRepository creates a new QualityLogRepository.
func NewQualityLogRepository(db *gorm.DB) *QualityLogRepository {
	return &QualityLogRepository{db: db}
}

// LogResult records one validation result.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - result: validation result to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *QualityLogRepository) LogResult(ctx context.Context, result *validate.Result) error {
	entry := &domain.QualityLogEntry{
		ValidationType: string(result.Kind),
		ValidatorName:  result.ValidatorName,
		PassedRecords:  result.PassedRecords,
		FailedRecords:  result.FailedRecords,
		Details:        summarizeDetails(result.ErrorDetails),
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns the most recent quality entries, newest first.
func (r *QualityLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.QualityLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []domain.QualityLogEntry
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func summarizeDetails(details []validate.CheckError) string {
	if len(details) == 0 {
		return ""
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "unserializable error details"
	}
	s := string(data)
	if len(s) > detailsMaxLen {
		cut := detailsMaxLen
		// Back off to a rune boundary so sample values with multi-byte
		// characters never leave invalid UTF-8 in the row.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
