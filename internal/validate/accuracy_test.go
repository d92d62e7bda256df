package validate

import (
	"context"
	"testing"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

func TestAccuracyValueRange(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "price", Values: []interface{}{150.0, 500.0, 180.0}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		ValueRanges: map[string]Range{"price": {Min: 0, Max: 300}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if result.Passed {
		t.Error("500 outside (0,300) must fail")
	}
	entry := findCheck(result, "value_range")
	if entry == nil {
		t.Fatalf("expected value_range entry, got %+v", result.ErrorDetails)
	}
	if entry.Column != "price" || entry.Violations != 1 {
		t.Errorf("entry = %+v, want 1 violation for price", entry)
	}
	if result.FailedRecords != 1 || result.PassedRecords != 2 {
		t.Errorf("counts = %d passed, %d failed; want 2/1", result.PassedRecords, result.FailedRecords)
	}
}

func TestAccuracyCategoricalNullIsViolation(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "currency", Values: []interface{}{"USD", "EUR", nil, "XXX"}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		CategoricalValues: map[string][]interface{}{"currency": {"USD", "EUR", "GBP"}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	entry := findCheck(result, "categorical_values")
	if entry == nil {
		t.Fatal("expected categorical_values entry")
	}
	if entry.Violations != 2 {
		t.Errorf("violations = %d, want 2 (null and XXX)", entry.Violations)
	}
}

func TestAccuracyRegexNullIsViolation(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "symbol", Values: []interface{}{"AAPL", "msft", nil}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		RegexPatterns: map[string]string{"symbol": `^[A-Z]{1,5}$`},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	entry := findCheck(result, "regex_pattern")
	if entry == nil {
		t.Fatal("expected regex_pattern entry")
	}
	if entry.Violations != 2 {
		t.Errorf("violations = %d, want 2 (lowercase and null)", entry.Violations)
	}
}

// A pattern hit in the middle of a value is not a match: the pattern
// is applied from the start of the string.
func TestAccuracyRegexAnchoredAtStart(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "code", Values: []interface{}{"ab123cd", "123abc"}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		RegexPatterns: map[string]string{"code": `\d{3}`},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if result.Passed {
		t.Error("mid-string match must count as a violation")
	}
	entry := findCheck(result, "regex_pattern")
	if entry == nil {
		t.Fatal("expected regex_pattern entry")
	}
	if entry.Violations != 1 {
		t.Errorf("violations = %d, want 1 (ab123cd only; 123abc matches at the start)", entry.Violations)
	}
}

func TestAccuracyCategoricalNumericTypesCompareByValue(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "lot_size", Values: []interface{}{int64(150), 150.0, "150", int64(99)}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		CategoricalValues: map[string][]interface{}{"lot_size": {150, "150"}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	entry := findCheck(result, "categorical_values")
	if entry == nil {
		t.Fatal("expected categorical_values entry")
	}
	if entry.Violations != 1 {
		t.Errorf("violations = %d, want 1 (only 99; int64/float64 150 match the rule's 150)", entry.Violations)
	}
}

func TestAccuracyCustomRule(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "volume", Values: []interface{}{100, -5, 300}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		CustomRules: map[string]Predicate{
			"volume": func(v interface{}) bool {
				n, ok := dataset.Float(v)
				return ok && n >= 0
			},
		},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	entry := findCheck(result, "custom_rule")
	if entry == nil || entry.Violations != 1 {
		t.Errorf("want 1 custom_rule violation, got %+v", result.ErrorDetails)
	}
}

// A row failing two checks is counted once per check: the aggregate
// failed count may exceed the row count.
func TestAccuracyAggregateCountsPerCheck(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "price", Values: []interface{}{-10.0}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		ValueRanges: map[string]Range{"price": {Min: 0, Max: 300}},
		CustomRules: map[string]Predicate{
			"price": func(v interface{}) bool {
				n, ok := dataset.Float(v)
				return ok && n > 0
			},
		},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if result.FailedRecords != 2 {
		t.Errorf("FailedRecords = %d, want 2 (one per failing check)", result.FailedRecords)
	}
	if result.FailedRecords <= ds.RowCount()-1 {
		t.Error("aggregate count should exceed the single failing row")
	}
}

func TestAccuracyRangeIgnoresNulls(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "price", Values: []interface{}{nil, 100.0}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		ValueRanges: map[string]Range{"price": {Min: 0, Max: 300}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Passed {
		t.Errorf("nulls are not range violations: %+v", result.ErrorDetails)
	}
}

func TestAccuracyMissingColumnSkipped(t *testing.T) {
	ds := mustDataset(t, []dataset.Column{
		{Name: "price", Values: []interface{}{100.0}},
	})

	result, err := NewAccuracyValidator(false).Validate(context.Background(), ds, AccuracyRules{
		ValueRanges: map[string]Range{"absent": {Min: 0, Max: 1}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Passed {
		t.Error("checks on absent columns are skipped, not failed")
	}
}
