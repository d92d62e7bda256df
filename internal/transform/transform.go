// Package transform holds pure dataset transformers. A transformer
// never mutates its input; it returns a new dataset with derived
// columns appended.
package transform

import (
	"context"
	"math"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// Transformer derives new columns from a dataset.
type Transformer interface {
	Name() string
	Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Stage wraps a transformer in the transform lifecycle.
func Stage(t Transformer) *pipeline.Stage {
	return pipeline.NewStage(t.Name(), pipeline.KindTransform,
		func(ctx context.Context, ds *dataset.Dataset, _ pipeline.Params) (*dataset.Dataset, error) {
			return t.Transform(ctx, ds)
		})
}

// rollingMean is the trailing mean of the last window values, using
// whatever values are present when fewer than window exist. Nulls are
// skipped; a window with no values yields nil.
func rollingMean(values []interface{}, window int) []interface{} {
	out := make([]interface{}, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if f, ok := dataset.Float(values[j]); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			out[i] = nil
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation over the last
// window values. Fewer than two values in the window yields nil.
func rollingStd(values []interface{}, window int) []interface{} {
	out := make([]interface{}, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var xs []float64
		for j := start; j <= i; j++ {
			if f, ok := dataset.Float(values[j]); ok {
				xs = append(xs, f)
			}
		}
		if len(xs) < 2 {
			out[i] = nil
			continue
		}
		mean := 0.0
		for _, x := range xs {
			mean += x
		}
		mean /= float64(len(xs))
		variance := 0.0
		for _, x := range xs {
			variance += (x - mean) * (x - mean)
		}
		variance /= float64(len(xs) - 1)
		out[i] = math.Sqrt(variance)
	}
	return out
}
