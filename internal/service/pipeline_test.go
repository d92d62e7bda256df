package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/domain"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/extract"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/lock"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/staging"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/validate"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

func newTestService(t *testing.T) (*PipelineService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.RunLogEntry{}, &domain.QualityLogEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`CREATE TABLE prices (symbol TEXT, close_price REAL, source_system TEXT, extracted_at TEXT)`).Error; err != nil {
		t.Fatalf("create target: %v", err)
	}

	log := logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
	loader := warehouse.NewLoader(db, lock.NewMemoryStore(), nil, 100)
	store := staging.NewStore(staging.NewMemoryStorage(), "test")

	svc := NewPipelineService(db, loader, store, log)
	svc.RegisterExtractor(extract.NewCSVExtractor())
	return svc, db
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRunSuccessWritesAuditRows(t *testing.T) {
	svc, db := newTestService(t)
	path := writeFixture(t, "symbol,close_price\nAAPL,189.5\nMSFT,402.1\n")

	result, err := svc.Run(context.Background(), RunRequest{
		Source: "csv_file",
		Target: "prices",
		Policy: warehouse.PolicyAppend,
		Params: pipeline.Params{"path": path},
		Rules: &RuleSet{
			Strict: true,
			Completeness: &validate.CompletenessRules{
				RequiredColumns: []string{"symbol", "close_price"},
				MinRowCount:     1,
			},
		},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Status != domain.RunStatusSuccess {
		t.Errorf("expected success status, got %s", result.Status)
	}
	if result.RecordsExtracted != 2 || result.RecordsLoaded != 2 {
		t.Errorf("expected 2 extracted and loaded, got %d/%d",
			result.RecordsExtracted, result.RecordsLoaded)
	}
	if result.StagingLocation == "" {
		t.Error("expected a staging location on success")
	}

	var runs []domain.RunLogEntry
	db.Find(&runs)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run log entry, got %d", len(runs))
	}
	if runs[0].Status != domain.RunStatusSuccess || runs[0].SourceName != "csv_file" {
		t.Errorf("unexpected run log entry: %+v", runs[0])
	}
	if runs[0].RunID != result.RunID {
		t.Errorf("expected returned run ID %d to match stored %d", result.RunID, runs[0].RunID)
	}

	var quality []domain.QualityLogEntry
	db.Find(&quality)
	if len(quality) != 1 {
		t.Fatalf("expected 1 quality log entry, got %d", len(quality))
	}
	if quality[0].ValidationType != string(validate.KindCompleteness) {
		t.Errorf("unexpected quality entry type: %s", quality[0].ValidationType)
	}

	var count int64
	db.Table("prices").Count(&count)
	if count != 2 {
		t.Errorf("expected 2 rows in target table, got %d", count)
	}
}

func TestRunStrictValidationFailureAbortsLoad(t *testing.T) {
	svc, db := newTestService(t)
	path := writeFixture(t, "symbol,close_price\nAAPL,189.5\n")

	result, err := svc.Run(context.Background(), RunRequest{
		Source: "csv_file",
		Target: "prices",
		Policy: warehouse.PolicyAppend,
		Params: pipeline.Params{"path": path},
		Rules: &RuleSet{
			Strict: true,
			Completeness: &validate.CompletenessRules{
				RequiredColumns: []string{"symbol", "missing_column"},
			},
		},
	})
	if err == nil {
		t.Fatal("expected strict validation failure")
	}
	if result.Status != domain.RunStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}
	if result.RecordsLoaded != 0 {
		t.Errorf("expected no records loaded, got %d", result.RecordsLoaded)
	}

	// The quality row and the failed run row are both still written.
	var quality []domain.QualityLogEntry
	db.Find(&quality)
	if len(quality) != 1 {
		t.Fatalf("expected 1 quality log entry, got %d", len(quality))
	}
	var runs []domain.RunLogEntry
	db.Find(&runs)
	if len(runs) != 1 || runs[0].Status != domain.RunStatusFailed {
		t.Fatalf("expected 1 failed run log entry, got %+v", runs)
	}
	if runs[0].ErrorMessage == "" {
		t.Error("expected error message on failed run entry")
	}
}

func TestRunNonStrictValidationFailureStillLoads(t *testing.T) {
	svc, db := newTestService(t)
	path := writeFixture(t, "symbol,close_price\nAAPL,189.5\n")

	result, err := svc.Run(context.Background(), RunRequest{
		Source: "csv_file",
		Target: "prices",
		Policy: warehouse.PolicyAppend,
		Params: pipeline.Params{"path": path},
		Rules: &RuleSet{
			Strict: false,
			Completeness: &validate.CompletenessRules{
				RequiredColumns: []string{"symbol", "missing_column"},
			},
		},
	})
	if err != nil {
		t.Fatalf("non-strict run should succeed, got %v", err)
	}
	if result.Status != domain.RunStatusSuccess {
		t.Errorf("expected success status, got %s", result.Status)
	}
	if result.RecordsLoaded != 1 {
		t.Errorf("expected 1 record loaded, got %d", result.RecordsLoaded)
	}

	var quality []domain.QualityLogEntry
	db.Find(&quality)
	if len(quality) != 1 || quality[0].Details == "" {
		t.Fatalf("expected one failing quality entry with details, got %+v", quality)
	}
}

func TestRunUnknownSource(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Run(context.Background(), RunRequest{
		Source: "nope",
		Target: "prices",
		Policy: warehouse.PolicyAppend,
	})
	if err == nil {
		t.Fatal("expected error for unknown source")
	}
	if result.Status != domain.RunStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}

	var runs []domain.RunLogEntry
	db.Find(&runs)
	if len(runs) != 1 || runs[0].Status != domain.RunStatusFailed {
		t.Fatalf("expected failed run log entry, got %+v", runs)
	}
}
