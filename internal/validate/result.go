// Package validate implements the data-quality validation engine: a
// closed set of validator kinds (completeness, accuracy, consistency,
// schema) sharing one result shape and strict-mode contract. Validators
// never mutate the dataset they inspect.
package validate

import (
	"context"
	"fmt"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// Kind identifies a validation check family.
type Kind string

const (
	KindCompleteness        Kind = "completeness"
	KindAccuracy            Kind = "accuracy"
	KindConsistency         Kind = "consistency"
	KindSchema              Kind = "schema"
	KindExpectedRecordCount Kind = "expected_record_count"
)

// CheckError is one structured check-failure record. Which fields are
// populated depends on the check; Message is always set.
type CheckError struct {
	Check      string                 `json:"check"`
	Column     string                 `json:"column,omitempty"`
	Columns    []string               `json:"columns,omitempty"`
	Violations int                    `json:"violations,omitempty"`
	Message    string                 `json:"message"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}

// Result is the outcome of one validator invocation.
//
// Passed is true exactly when ErrorDetails is empty. PassedRecords plus
// FailedRecords can exceed TotalRecords: each check contributes its own
// counts, so a row failing several checks is counted once per check.
// Downstream quality dashboards depend on these aggregate-per-check
// numbers, so they are not row-deduplicated.
type Result struct {
	ValidatorName string                 `json:"validator_name"`
	Kind          Kind                   `json:"validation_type"`
	Passed        bool                   `json:"passed"`
	PassedRecords int                    `json:"passed_records"`
	FailedRecords int                    `json:"failed_records"`
	TotalRecords  int                    `json:"total_records"`
	ErrorDetails  []CheckError           `json:"error_details"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// SuccessRate returns PassedRecords/TotalRecords as a percentage, or 0
// when TotalRecords is zero.
func (r *Result) SuccessRate() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.PassedRecords) / float64(r.TotalRecords) * 100
}

// Failure is returned by strict-mode validators when a result does not
// pass. The result it wraps was still computed and logged.
type Failure struct {
	Validator string
	Kind      Kind
	Failed    int
	Total     int
}

func (e *Failure) Error() string {
	return fmt.Sprintf("validation failed: %s - %s. Failed records: %d/%d",
		e.Validator, e.Kind, e.Failed, e.Total)
}

// base carries the name and strict flag shared by all validator kinds.
type base struct {
	name   string
	strict bool
}

// finish logs the result summary and, in strict mode, converts a
// non-passing result into a *Failure. The result is always returned so
// callers can act on the detail even when the error is non-nil.
func (b base) finish(ctx context.Context, result *Result) (*Result, error) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		"validator":    result.ValidatorName,
		"type":         string(result.Kind),
		"success_rate": fmt.Sprintf("%.2f%%", result.SuccessRate()),
		"passed":       result.PassedRecords,
		"failed":       result.FailedRecords,
	})

	if result.Passed {
		log.Info("Validation passed")
	} else {
		log.WithField("errors", len(result.ErrorDetails)).Warn("Validation failed")
	}

	if b.strict && !result.Passed {
		return result, &Failure{
			Validator: result.ValidatorName,
			Kind:      result.Kind,
			Failed:    result.FailedRecords,
			Total:     result.TotalRecords,
		}
	}
	return result, nil
}
