// Package extract provides concrete source extractors. Each extractor
// exposes its core operation through Stage, which wraps it in the
// extract lifecycle (timing, counts, provenance columns).
package extract

import (
	"context"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// Extractor pulls a dataset out of one source kind.
type Extractor interface {
	// Name returns the stable source identifier, stamped into the
	// source_system provenance column.
	Name() string

	// Extract fetches data from the source.
	Extract(ctx context.Context, params pipeline.Params) (*dataset.Dataset, error)
}

// Stage wraps an extractor in the extract lifecycle.
func Stage(e Extractor) *pipeline.Stage {
	return pipeline.NewStage(e.Name(), pipeline.KindExtract,
		func(ctx context.Context, _ *dataset.Dataset, params pipeline.Params) (*dataset.Dataset, error) {
			return e.Extract(ctx, params)
		})
}
