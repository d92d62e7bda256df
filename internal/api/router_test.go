package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/domain"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/extract"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/lock"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/service"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

func newTestRouter(t *testing.T) http.Handler {
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

	svc := service.NewPipelineService(db, loader, nil, log)
	svc.RegisterExtractor(extract.NewCSVExtractor())

	return SetupRouter(db, svc, repository.NewRunLogRepository(db),
		repository.NewQualityLogRepository(db), log, "test")
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Warehouse string `json:"warehouse"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "financial-etl" || resp.Warehouse != "up" {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestTriggerRunEndpoint(t *testing.T) {
	router := newTestRouter(t)

	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte("symbol,close_price\nAAPL,189.5\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	body := fmt.Sprintf(`{"source":"csv_file","target":"prices","params":{"path":%q}}`, path)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status        string `json:"status"`
		RecordsLoaded int    `json:"records_loaded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.RecordsLoaded != 1 {
		t.Errorf("unexpected response: %s", w.Body.String())
	}

	// The run shows up in the listing.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs?source=csv_file", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 listing runs, got %d", w.Code)
	}
	var listing struct {
		Runs []domain.RunLogEntry `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Runs) != 1 {
		t.Fatalf("expected 1 run in listing, got %d", len(listing.Runs))
	}
}

func TestTriggerRunValidation(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"source":"csv_file"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing target, got %d", w.Code)
	}
}

func TestTriggerRunFailureStatus(t *testing.T) {
	router := newTestRouter(t)

	body := `{"source":"csv_file","target":"prices","params":{"path":"/does/not/exist.csv"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for failed run, got %d", w.Code)
	}
}
