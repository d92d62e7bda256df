package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

// ColumnSchema declares one column's expected type and nullability.
// Type is a family name (int, float, string, bool, datetime) or an
// exact dtype name; empty skips the type check.
type ColumnSchema struct {
	Type     string
	Nullable bool
}

// SchemaRules configures a schema validation pass.
type SchemaRules struct {
	Schema map[string]ColumnSchema
	// AllowExtraColumns permits dataset columns absent from Schema.
	AllowExtraColumns bool
}

// SchemaValidator validates dataset structure against a declared schema.
type SchemaValidator struct {
	base
}

// NewSchemaValidator creates a schema validator.
func NewSchemaValidator(strict bool) *SchemaValidator {
	return &SchemaValidator{base{name: "schema_validator", strict: strict}}
}

// typeFamilies resolves declared type names to the concrete dtypes they
// accept, so a declared "int" matches any integer representation.
var typeFamilies = map[string][]dataset.DType{
	"int":      {dataset.DTypeInt},
	"float":    {dataset.DTypeFloat},
	"string":   {dataset.DTypeString},
	"text":     {dataset.DTypeString},
	"bool":     {dataset.DTypeBool},
	"datetime": {dataset.DTypeDatetime},
}

func typeCompatible(actual dataset.DType, expected string) bool {
	// Columns that are entirely null carry no type evidence.
	if actual == dataset.DTypeUnknown {
		return true
	}
	if family, ok := typeFamilies[strings.ToLower(expected)]; ok {
		for _, t := range family {
			if actual == t {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(string(actual), expected)
}

// Validate checks declared-column presence, extra columns, nullability,
// and type compatibility. A passing dataset counts every row as passed;
// a failing one counts every row as failed.
func (v *SchemaValidator) Validate(ctx context.Context, ds *dataset.Dataset, rules SchemaRules) (*Result, error) {
	var errorDetails []CheckError

	actualColumns := make(map[string]struct{})
	for _, name := range ds.ColumnNames() {
		actualColumns[name] = struct{}{}
	}

	var missing []string
	for name := range rules.Schema {
		if _, ok := actualColumns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		errorDetails = append(errorDetails, CheckError{
			Check:   "missing_columns",
			Columns: missing,
			Message: fmt.Sprintf("Missing expected columns: %v", missing),
		})
	}

	if !rules.AllowExtraColumns {
		var extra []string
		for _, name := range ds.ColumnNames() {
			if _, ok := rules.Schema[name]; !ok {
				extra = append(extra, name)
			}
		}
		if len(extra) > 0 {
			errorDetails = append(errorDetails, CheckError{
				Check:   "extra_columns",
				Columns: extra,
				Message: fmt.Sprintf("Unexpected columns found: %v", extra),
			})
		}
	}

	for column, def := range rules.Schema {
		if !ds.HasColumn(column) {
			continue
		}

		if !def.Nullable {
			if nullCount := ds.NullCount(column); nullCount > 0 {
				errorDetails = append(errorDetails, CheckError{
					Check:      "nullability",
					Column:     column,
					Violations: nullCount,
					Message:    fmt.Sprintf("Column %s should not contain nulls but has %d", column, nullCount),
				})
			}
		}

		if def.Type != "" {
			actual := ds.DTypeOf(column)
			if !typeCompatible(actual, def.Type) {
				errorDetails = append(errorDetails, CheckError{
					Check:   "data_type",
					Column:  column,
					Message: fmt.Sprintf("Type mismatch for %s", column),
					Detail: map[string]interface{}{
						"expected": def.Type,
						"actual":   string(actual),
					},
				})
			}
		}
	}

	passed := len(errorDetails) == 0
	rowCount := ds.RowCount()
	passedRecords, failedRecords := rowCount, 0
	if !passed {
		passedRecords, failedRecords = 0, rowCount
	}

	result := &Result{
		ValidatorName: v.name,
		Kind:          KindSchema,
		Passed:        passed,
		PassedRecords: passedRecords,
		FailedRecords: failedRecords,
		TotalRecords:  rowCount,
		ErrorDetails:  errorDetails,
		Metadata: map[string]interface{}{
			"expected_columns":    len(rules.Schema),
			"actual_columns":      ds.ColumnCount(),
			"allow_extra_columns": rules.AllowExtraColumns,
		},
	}

	return v.finish(ctx, result)
}
