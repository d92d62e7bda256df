// Package service wires the pipeline stages together: extract,
// validate, transform and load for one configured source, with audit
// and quality rows written to the warehouse.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/domain"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/extract"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/staging"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/transform"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/validate"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

// RuleSet bundles the validation rules applied to one source. Nil rule
// groups are skipped. Strict validators abort the run on failure;
// non-strict ones only record the result.
type RuleSet struct {
	Completeness *validate.CompletenessRules
	Accuracy     *validate.AccuracyRules
	Consistency  *validate.ConsistencyRules
	Schema       *validate.SchemaRules
	Strict       bool
}

// RunRequest describes one pipeline run.
type RunRequest struct {
	Source      string
	Target      string
	Policy      warehouse.Policy
	Params      pipeline.Params
	Rules       *RuleSet
	Transformer transform.Transformer

	// ConflictColumns is required for the upsert policy.
	ConflictColumns []string
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID            uint
	RunUUID          string
	Status           domain.RunStatus
	RecordsExtracted int
	RecordsValidated int
	RecordsLoaded    int
	Duration         time.Duration
	StagingLocation  string
}

// PipelineService runs the extract, validate, transform, load sequence
// for registered sources.
type PipelineService struct {
	loader      *warehouse.Loader
	staging     *staging.Store
	runLogs     *repository.RunLogRepository
	qualityLogs *repository.QualityLogRepository
	extractors  map[string]extract.Extractor
	logger      *logger.Logger
}

// NewPipelineService creates a new pipeline service. The staging store
// is optional; a nil store skips the intermediate persistence step.
func NewPipelineService(
	db *gorm.DB,
	loader *warehouse.Loader,
	stagingStore *staging.Store,
	log *logger.Logger,
) *PipelineService {
	return &PipelineService{
		loader:      loader,
		staging:     stagingStore,
		runLogs:     repository.NewRunLogRepository(db),
		qualityLogs: repository.NewQualityLogRepository(db),
		extractors:  make(map[string]extract.Extractor),
		logger:      log,
	}
}

// RegisterExtractor makes a source available to Run under the
// extractor's own name.
func (s *PipelineService) RegisterExtractor(e extract.Extractor) {
	s.extractors[e.Name()] = e
}

// Sources returns the registered source names.
func (s *PipelineService) Sources() []string {
	names := make([]string, 0, len(s.extractors))
	for name := range s.extractors {
		names = append(names, name)
	}
	return names
}

func (s *PipelineService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Run executes one full pipeline pass. The run log entry is written
// exactly once, at the end, whatever the outcome.
func (s *PipelineService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	runUUID := uuid.New().String()
	ctx = s.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, runUUID)
	ctx = logger.SetSource(ctx, req.Source)

	start := time.Now()
	result := &RunResult{RunUUID: runUUID, Status: domain.RunStatusFailed}

	runErr := s.execute(ctx, req, result)
	result.Duration = time.Since(start)
	if runErr == nil {
		result.Status = domain.RunStatusSuccess
	}

	entry := &domain.RunLogEntry{
		DagID:            fmt.Sprintf("%s_pipeline", req.Source),
		TaskID:           runUUID,
		SourceName:       req.Source,
		Status:           result.Status,
		RecordsExtracted: result.RecordsExtracted,
		RecordsValidated: result.RecordsValidated,
		RecordsLoaded:    result.RecordsLoaded,
		RunEndTime:       time.Now().UTC(),
	}
	if runErr != nil {
		entry.ErrorMessage = runErr.Error()
	}

	runID, logErr := s.runLogs.Create(ctx, entry)
	if logErr != nil {
		s.log(ctx).WithError(logErr).Error("Failed to write run log entry")
		if runErr == nil {
			runErr = fmt.Errorf("failed to write run log entry: %w", logErr)
			result.Status = domain.RunStatusFailed
		}
	}
	result.RunID = runID

	s.log(ctx).WithFields(logger.Fields{
		"status":            string(result.Status),
		"records_extracted": result.RecordsExtracted,
		"records_loaded":    result.RecordsLoaded,
		"duration_ms":       result.Duration.Milliseconds(),
	}).Info("Pipeline run finished")

	return result, runErr
}

func (s *PipelineService) execute(ctx context.Context, req RunRequest, result *RunResult) error {
	extractor, ok := s.extractors[req.Source]
	if !ok {
		return fmt.Errorf("unknown source: %s", req.Source)
	}
	if req.Target == "" {
		return errors.New("run request missing target table")
	}

	ds, meta, err := extract.Stage(extractor).Execute(ctx, nil, req.Params)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	result.RecordsExtracted = meta.OutputRecords

	if s.staging != nil {
		key := fmt.Sprintf("runs/%s/%s", result.RunUUID, req.Source)
		location, err := s.staging.Put(ctx, key, ds)
		if err != nil {
			return fmt.Errorf("staging write failed: %w", err)
		}
		result.StagingLocation = location
	}

	if req.Rules != nil {
		if err := s.validateDataset(ctx, ds, req.Rules); err != nil {
			return err
		}
		result.RecordsValidated = ds.RowCount()
	}

	if req.Transformer != nil {
		ds, meta, err = transform.Stage(req.Transformer).Execute(ctx, ds, req.Params)
		if err != nil {
			return fmt.Errorf("transform failed: %w", err)
		}
	}

	loadStage := pipeline.NewLoadStage(fmt.Sprintf("load_%s", req.Target),
		func(ctx context.Context, ds *dataset.Dataset, _ pipeline.Params) (int64, error) {
			return s.loader.Write(ctx, ds, warehouse.LoadConfig{
				Target:          req.Target,
				Policy:          req.Policy,
				ConflictColumns: req.ConflictColumns,
			})
		})
	written, _, err := loadStage.Execute(ctx, ds, req.Params)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	result.RecordsLoaded = int(written)
	return nil
}

// validateDataset runs every configured validator, persisting each
// result before acting on strict failures.
func (s *PipelineService) validateDataset(ctx context.Context, ds *dataset.Dataset, rules *RuleSet) error {
	type invocation func(context.Context) (*validate.Result, error)

	var checks []invocation
	if rules.Completeness != nil {
		v := validate.NewCompletenessValidator(rules.Strict)
		checks = append(checks, func(ctx context.Context) (*validate.Result, error) {
			return v.Validate(ctx, ds, *rules.Completeness)
		})
	}
	if rules.Accuracy != nil {
		v := validate.NewAccuracyValidator(rules.Strict)
		checks = append(checks, func(ctx context.Context) (*validate.Result, error) {
			return v.Validate(ctx, ds, *rules.Accuracy)
		})
	}
	if rules.Consistency != nil {
		v := validate.NewConsistencyValidator(rules.Strict)
		checks = append(checks, func(ctx context.Context) (*validate.Result, error) {
			return v.Validate(ctx, ds, *rules.Consistency)
		})
	}
	if rules.Schema != nil {
		v := validate.NewSchemaValidator(rules.Strict)
		checks = append(checks, func(ctx context.Context) (*validate.Result, error) {
			return v.Validate(ctx, ds, *rules.Schema)
		})
	}

	for _, check := range checks {
		result, err := check(ctx)
		if result != nil {
			if logErr := s.qualityLogs.LogResult(ctx, result); logErr != nil {
				s.log(ctx).WithError(logErr).Error("Failed to write quality log entry")
			}
		}
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}
