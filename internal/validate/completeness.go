package validate

import (
	"context"
	"fmt"
	"math"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

// CompletenessRules configures a completeness validation pass.
type CompletenessRules struct {
	// RequiredColumns must all be present in the dataset.
	RequiredColumns []string
	// NullThreshold is the maximum allowed null percentage per column
	// (0-100). Zero allows no nulls at all.
	NullThreshold float64
	// MinRowCount is the row-count floor. Zero disables the check.
	MinRowCount int
}

// CompletenessValidator checks that all expected data is present.
type CompletenessValidator struct {
	base
}

// NewCompletenessValidator creates a completeness validator.
// Parameters:
//   - strict: when true, a non-passing result is returned with a *Failure error.
func NewCompletenessValidator(strict bool) *CompletenessValidator {
	return &CompletenessValidator{base{name: "completeness_validator", strict: strict}}
}

// Validate runs the row-count floor, required-column presence, and
// per-column null-ratio checks. Record counts are over cells: passed =
// non-null cells, failed = null cells.
func (v *CompletenessValidator) Validate(ctx context.Context, ds *dataset.Dataset, rules CompletenessRules) (*Result, error) {
	var errorDetails []CheckError
	rowCount := ds.RowCount()

	if rowCount < rules.MinRowCount {
		errorDetails = append(errorDetails, CheckError{
			Check:   "min_row_count",
			Message: fmt.Sprintf("Row count %d below minimum %d", rowCount, rules.MinRowCount),
			Detail: map[string]interface{}{
				"expected": rules.MinRowCount,
				"actual":   rowCount,
			},
		})
	}

	var missing []string
	for _, name := range rules.RequiredColumns {
		if !ds.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		errorDetails = append(errorDetails, CheckError{
			Check:   "missing_columns",
			Columns: missing,
			Message: fmt.Sprintf("Missing required columns: %v", missing),
		})
	}

	// Columns over the null threshold are aggregated into one entry.
	nullViolations := make(map[string]interface{})
	for _, name := range ds.ColumnNames() {
		nullCount := ds.NullCount(name)
		nullPct := 0.0
		if rowCount > 0 {
			nullPct = float64(nullCount) / float64(rowCount) * 100
		}
		if nullPct > rules.NullThreshold {
			nullViolations[name] = map[string]interface{}{
				"null_count":      nullCount,
				"null_percentage": math.Round(nullPct*100) / 100,
				"threshold":       rules.NullThreshold,
			}
		}
	}
	if len(nullViolations) > 0 {
		errorDetails = append(errorDetails, CheckError{
			Check:   "null_threshold",
			Message: fmt.Sprintf("%d columns exceed null threshold", len(nullViolations)),
			Detail:  map[string]interface{}{"violations": nullViolations},
		})
	}

	totalCells := ds.TotalCells()
	nullCells := ds.TotalNulls()
	completeCells := totalCells - nullCells

	completenessRate := 0.0
	if totalCells > 0 {
		completenessRate = float64(completeCells) / float64(totalCells) * 100
	}

	result := &Result{
		ValidatorName: v.name,
		Kind:          KindCompleteness,
		Passed:        len(errorDetails) == 0,
		PassedRecords: completeCells,
		FailedRecords: nullCells,
		TotalRecords:  totalCells,
		ErrorDetails:  errorDetails,
		Metadata: map[string]interface{}{
			"row_count":         rowCount,
			"column_count":      ds.ColumnCount(),
			"completeness_rate": math.Round(completenessRate*100) / 100,
		},
	}

	return v.finish(ctx, result)
}

// ValidateExpectedRecords checks the row count against an expected
// count within a relative tolerance band
// [expected*(1-tolerance), expected*(1+tolerance)].
func (v *CompletenessValidator) ValidateExpectedRecords(ctx context.Context, ds *dataset.Dataset, expected int, tolerance float64) (*Result, error) {
	actual := ds.RowCount()
	minExpected := float64(expected) * (1 - tolerance)
	maxExpected := float64(expected) * (1 + tolerance)
	passed := float64(actual) >= minExpected && float64(actual) <= maxExpected

	var errorDetails []CheckError
	if !passed {
		errorDetails = append(errorDetails, CheckError{
			Check: "expected_record_count",
			Message: fmt.Sprintf("Record count %d outside expected range [%d, %d]",
				actual, int(minExpected), int(maxExpected)),
			Detail: map[string]interface{}{
				"expected":  expected,
				"actual":    actual,
				"tolerance": tolerance,
				"range":     []int{int(minExpected), int(maxExpected)},
			},
		})
	}

	deviation := 0.0
	if expected > 0 {
		deviation = float64(actual-expected) / float64(expected) * 100
	}

	passedRecords, failedRecords := actual, 0
	if !passed {
		passedRecords, failedRecords = 0, actual
	}

	result := &Result{
		ValidatorName: v.name,
		Kind:          KindExpectedRecordCount,
		Passed:        passed,
		PassedRecords: passedRecords,
		FailedRecords: failedRecords,
		TotalRecords:  actual,
		ErrorDetails:  errorDetails,
		Metadata: map[string]interface{}{
			"expected_count": expected,
			"actual_count":   actual,
			"tolerance":      tolerance,
			"deviation":      math.Round(deviation*100) / 100,
		},
	}

	return v.finish(ctx, result)
}
