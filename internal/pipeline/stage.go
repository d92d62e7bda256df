package pipeline

import (
	"context"
	"time"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// Kind identifies the stage family. Extract stages get provenance
// columns appended by the lifecycle; load stages report row counts
// instead of datasets.
type Kind string

const (
	KindExtract   Kind = "extract"
	KindTransform Kind = "transform"
	KindLoad      Kind = "load"
)

// Params carries per-invocation stage parameters.
type Params map[string]interface{}

// Metadata records the observable facts of one stage execution. It is
// created at stage entry, finalized at exit, and owned exclusively by
// that execution.
type Metadata struct {
	Name          string
	Kind          Kind
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	InputRecords  int
	OutputRecords int
}

// DatasetFunc is the core operation of an extract or transform stage:
// a pure function from (dataset, parameters) to a new dataset.
type DatasetFunc func(ctx context.Context, ds *dataset.Dataset, params Params) (*dataset.Dataset, error)

// CountFunc is the core operation of a load stage: a side-effecting
// function returning the affected row count.
type CountFunc func(ctx context.Context, ds *dataset.Dataset, params Params) (int64, error)

// ProvenanceSourceColumn and ProvenanceTimeColumn are appended to every
// extract stage's output.
const (
	ProvenanceSourceColumn = "source_system"
	ProvenanceTimeColumn   = "extracted_at"
)

// Stage wraps a core operation with a uniform pre/execute/post
// lifecycle so every stage's duration and throughput are observable
// without inspecting its internals. Composition replaces a base-class
// hierarchy: the core function is the only per-stage piece.
type Stage struct {
	name string
	kind Kind
	core DatasetFunc
}

// NewStage creates a lifecycle-wrapped dataset stage.
// Parameters:
//   - name: stage name; for extract stages this is the source identifier
//     stamped into the provenance column.
//   - kind: KindExtract or KindTransform.
//   - core: the stage's core operation.
func NewStage(name string, kind Kind, core DatasetFunc) *Stage {
	return &Stage{name: name, kind: kind, core: core}
}

// Execute runs pre -> core -> post. Errors from core propagate
// unchanged after logging; post is skipped on error but StartTime is
// always recorded in the returned metadata.
func (s *Stage) Execute(ctx context.Context, ds *dataset.Dataset, params Params) (*dataset.Dataset, *Metadata, error) {
	meta := s.pre(ctx, ds)

	out, err := s.core(ctx, ds, params)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField(logger.FieldStage, s.name).
			Error("Stage failed")
		return nil, meta, err
	}

	out = s.post(ctx, meta, out)
	return out, meta, nil
}

func (s *Stage) pre(ctx context.Context, ds *dataset.Dataset) *Metadata {
	meta := &Metadata{
		Name:      s.name,
		Kind:      s.kind,
		StartTime: time.Now(),
	}
	if ds != nil {
		meta.InputRecords = ds.RowCount()
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldStage:   s.name,
		"kind":              string(s.kind),
		logger.FieldRecords: meta.InputRecords,
	}).Info("Stage started")

	return meta
}

func (s *Stage) post(ctx context.Context, meta *Metadata, out *dataset.Dataset) *dataset.Dataset {
	meta.EndTime = time.Now()
	meta.Duration = meta.EndTime.Sub(meta.StartTime)

	if s.kind == KindExtract && out != nil {
		// Provenance columns; duplicates only if a source already emits them.
		_ = out.AddConstColumn(ProvenanceSourceColumn, s.name)
		_ = out.AddConstColumn(ProvenanceTimeColumn, meta.EndTime)
	}

	if out != nil {
		meta.OutputRecords = out.RowCount()
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldStage:      s.name,
		"kind":                 string(s.kind),
		logger.FieldRecords:    meta.OutputRecords,
		logger.FieldDurationMs: meta.Duration.Milliseconds(),
	}).Info("Stage completed")

	return out
}

// LoadStage wraps a count-returning core with the same lifecycle as
// Stage, logging rows/second throughput on completion.
type LoadStage struct {
	name string
	core CountFunc
}

// NewLoadStage creates a lifecycle-wrapped load stage.
func NewLoadStage(name string, core CountFunc) *LoadStage {
	return &LoadStage{name: name, core: core}
}

// Execute runs pre -> core -> post for a load stage.
func (s *LoadStage) Execute(ctx context.Context, ds *dataset.Dataset, params Params) (int64, *Metadata, error) {
	meta := &Metadata{
		Name:      s.name,
		Kind:      KindLoad,
		StartTime: time.Now(),
	}
	if ds != nil {
		meta.InputRecords = ds.RowCount()
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldStage:   s.name,
		logger.FieldRecords: meta.InputRecords,
	}).Info("Load started")

	count, err := s.core(ctx, ds, params)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField(logger.FieldStage, s.name).
			Error("Load failed")
		return 0, meta, err
	}

	meta.EndTime = time.Now()
	meta.Duration = meta.EndTime.Sub(meta.StartTime)
	meta.OutputRecords = int(count)

	rowsPerSec := 0.0
	if secs := meta.Duration.Seconds(); secs > 0 {
		rowsPerSec = float64(count) / secs
	}
	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldStage:      s.name,
		logger.FieldRecords:    count,
		logger.FieldDurationMs: meta.Duration.Milliseconds(),
		logger.FieldRowsPerSec: rowsPerSec,
	}).Info("Load completed")

	return count, meta, nil
}
