package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

// CrossFieldRule is a row-wise relational predicate over two columns;
// rows where it returns false are violations for that pair.
type CrossFieldRule struct {
	Column1   string
	Column2   string
	Predicate func(a, b interface{}) bool
}

// ConsistencyRules configures a consistency validation pass.
type ConsistencyRules struct {
	// DataTypes declares the expected dtype per column. A mismatch
	// fails the whole column's row count, not individual cells.
	DataTypes map[string]dataset.DType
	// UniqueColumns must not contain duplicate values; the first
	// occurrence is not counted as a violation.
	UniqueColumns []string
	// DateFormats maps columns to Go reference layouts, e.g. "2006-01-02".
	DateFormats     map[string]string
	CrossFieldRules []CrossFieldRule
}

// ConsistencyValidator maintains uniform data formats and values.
type ConsistencyValidator struct {
	base
}

// NewConsistencyValidator creates a consistency validator.
func NewConsistencyValidator(strict bool) *ConsistencyValidator {
	return &ConsistencyValidator{base{name: "consistency_validator", strict: strict}}
}

// Validate runs the dtype, uniqueness, date-format, and cross-field
// checks.
func (v *ConsistencyValidator) Validate(ctx context.Context, ds *dataset.Dataset, rules ConsistencyRules) (*Result, error) {
	var errorDetails []CheckError
	passedCount := 0
	failedCount := 0
	rowCount := ds.RowCount()

	for column, expected := range rules.DataTypes {
		if !ds.HasColumn(column) {
			continue
		}
		actual := ds.DTypeOf(column)
		if actual != expected {
			errorDetails = append(errorDetails, CheckError{
				Check:   "data_type",
				Column:  column,
				Message: fmt.Sprintf("Data type mismatch for %s", column),
				Detail: map[string]interface{}{
					"expected": string(expected),
					"actual":   string(actual),
				},
			})
			failedCount += rowCount
		} else {
			passedCount += rowCount
		}
	}

	for _, column := range rules.UniqueColumns {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		seen := make(map[interface{}]struct{}, len(values))
		duplicates := 0
		for _, val := range values {
			if _, dup := seen[val]; dup {
				duplicates++
				continue
			}
			seen[val] = struct{}{}
		}
		if duplicates > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "uniqueness",
				Column:     column,
				Violations: duplicates,
				Message:    fmt.Sprintf("%d duplicate values found in %s", duplicates, column),
			})
			failedCount += duplicates
			passedCount += rowCount - duplicates
		} else {
			passedCount += rowCount
		}
	}

	for column, layout := range rules.DateFormats {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		invalid := 0
		for _, val := range values {
			if val == nil {
				continue
			}
			if _, isTime := val.(time.Time); isTime {
				continue
			}
			s, _ := dataset.String(val)
			if _, err := time.Parse(layout, s); err != nil {
				invalid++
			}
		}
		if invalid > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "date_format",
				Column:     column,
				Violations: invalid,
				Message:    fmt.Sprintf("%d values don't match date format %q", invalid, layout),
				Detail:     map[string]interface{}{"expected_format": layout},
			})
			failedCount += invalid
			passedCount += rowCount - invalid
		} else {
			passedCount += rowCount
		}
	}

	for _, rule := range rules.CrossFieldRules {
		if !ds.HasColumn(rule.Column1) || !ds.HasColumn(rule.Column2) {
			continue
		}
		a, _ := ds.Column(rule.Column1)
		b, _ := ds.Column(rule.Column2)
		violations := 0
		for i := 0; i < rowCount; i++ {
			if !rule.Predicate(a[i], b[i]) {
				violations++
			}
		}
		if violations > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "cross_field",
				Columns:    []string{rule.Column1, rule.Column2},
				Violations: violations,
				Message:    fmt.Sprintf("Cross-field validation failed for %s and %s", rule.Column1, rule.Column2),
			})
			failedCount += violations
			passedCount += rowCount - violations
		} else {
			passedCount += rowCount
		}
	}

	result := &Result{
		ValidatorName: v.name,
		Kind:          KindConsistency,
		Passed:        len(errorDetails) == 0,
		PassedRecords: passedCount,
		FailedRecords: failedCount,
		TotalRecords:  passedCount + failedCount,
		ErrorDetails:  errorDetails,
		Metadata: map[string]interface{}{
			"data_type_checks":   len(rules.DataTypes),
			"uniqueness_checks":  len(rules.UniqueColumns),
			"date_format_checks": len(rules.DateFormats),
			"cross_field_checks": len(rules.CrossFieldRules),
		},
	}

	return v.finish(ctx, result)
}
