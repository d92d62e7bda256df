package validate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// Range is an inclusive numeric value range.
type Range struct {
	Min float64
	Max float64
}

// Predicate evaluates one cell value; false marks the row as a violation.
type Predicate func(value interface{}) bool

// AccuracyRules configures an accuracy validation pass. Checks only run
// for columns present in the dataset.
type AccuracyRules struct {
	ValueRanges map[string]Range
	// CategoricalValues maps columns to their allowed value sets.
	// Numeric values compare by magnitude, so a rule written with 150
	// accepts int64(150) and float64(150) cells alike.
	CategoricalValues map[string][]interface{}
	// RegexPatterns maps columns to patterns matched against the start
	// of each cell's string form; nulls count as violations.
	RegexPatterns map[string]string
	CustomRules   map[string]Predicate
}

// AccuracyValidator verifies data correctness against declared
// standards. Each check contributes its own violation count to the
// aggregate, so rows failing several checks are counted once per check.
type AccuracyValidator struct {
	base
}

// NewAccuracyValidator creates an accuracy validator.
func NewAccuracyValidator(strict bool) *AccuracyValidator {
	return &AccuracyValidator{base{name: "accuracy_validator", strict: strict}}
}

// Validate runs the range, categorical, regex, and custom-rule checks.
// Passing requires zero check-level violation entries across all four.
func (v *AccuracyValidator) Validate(ctx context.Context, ds *dataset.Dataset, rules AccuracyRules) (*Result, error) {
	var errorDetails []CheckError
	passedCount := 0
	failedCount := 0
	rowCount := ds.RowCount()

	for column, r := range rules.ValueRanges {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		violations := 0
		var samples []interface{}
		for _, val := range values {
			// Nulls carry no numeric evidence and are not range violations.
			n, isNum := dataset.Float(val)
			if !isNum {
				continue
			}
			if n < r.Min || n > r.Max {
				violations++
				if len(samples) < 5 {
					samples = append(samples, val)
				}
			}
		}
		if violations > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "value_range",
				Column:     column,
				Violations: violations,
				Message:    fmt.Sprintf("%d values outside range [%v, %v]", violations, r.Min, r.Max),
				Detail: map[string]interface{}{
					"range":         []float64{r.Min, r.Max},
					"sample_values": samples,
				},
			})
			failedCount += violations
		}
		passedCount += rowCount - violations
	}

	for column, validValues := range rules.CategoricalValues {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		valid := make(map[interface{}]struct{}, len(validValues))
		for _, v := range validValues {
			valid[categoricalKey(v)] = struct{}{}
		}
		violations := 0
		invalidSeen := make(map[interface{}]struct{})
		var invalid []interface{}
		for _, val := range values {
			if _, ok := valid[categoricalKey(val)]; ok {
				continue
			}
			violations++
			if _, seen := invalidSeen[val]; !seen && len(invalid) < 10 {
				invalidSeen[val] = struct{}{}
				invalid = append(invalid, val)
			}
		}
		if violations > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "categorical_values",
				Column:     column,
				Violations: violations,
				Message:    fmt.Sprintf("%d values outside the allowed set", violations),
				Detail:     map[string]interface{}{"invalid_values": invalid},
			})
			failedCount += violations
		}
		passedCount += rowCount - violations
	}

	for column, pattern := range rules.RegexPatterns {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		// Anchored at the start: a match elsewhere in the value is a
		// violation.
		re, err := regexp.Compile(`\A(?:` + pattern + `)`)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("column", column).
				Error("Invalid accuracy regex pattern")
			continue
		}
		violations := 0
		var samples []interface{}
		for _, val := range values {
			s, notNull := dataset.String(val)
			if !notNull || !re.MatchString(s) {
				violations++
				if len(samples) < 5 {
					samples = append(samples, val)
				}
			}
		}
		if violations > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "regex_pattern",
				Column:     column,
				Violations: violations,
				Message:    fmt.Sprintf("%d values do not match pattern %q", violations, pattern),
				Detail: map[string]interface{}{
					"pattern":       pattern,
					"sample_values": samples,
				},
			})
			failedCount += violations
		}
		passedCount += rowCount - violations
	}

	for column, rule := range rules.CustomRules {
		values, ok := ds.Column(column)
		if !ok {
			continue
		}
		violations := 0
		for _, val := range values {
			if !rule(val) {
				violations++
			}
		}
		if violations > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:      "custom_rule",
				Column:     column,
				Violations: violations,
				Message:    fmt.Sprintf("%d values rejected by custom rule", violations),
			})
			failedCount += violations
		}
		passedCount += rowCount - violations
	}

	result := &Result{
		ValidatorName: v.name,
		Kind:          KindAccuracy,
		Passed:        len(errorDetails) == 0,
		PassedRecords: passedCount,
		FailedRecords: failedCount,
		TotalRecords:  passedCount + failedCount,
		ErrorDetails:  errorDetails,
		Metadata: map[string]interface{}{
			"checks_performed": len(rules.ValueRanges) + len(rules.CategoricalValues) +
				len(rules.RegexPatterns) + len(rules.CustomRules),
		},
	}

	return v.finish(ctx, result)
}

// categoricalKey folds numeric values to float64 so set membership
// compares magnitudes rather than concrete types.
func categoricalKey(v interface{}) interface{} {
	if f, ok := dataset.Float(v); ok {
		return f
	}
	return v
}
