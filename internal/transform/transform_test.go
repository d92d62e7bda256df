package transform

import (
	"context"
	"math"
	"testing"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

func mustDataset(t *testing.T, columns []string, rows []map[string]interface{}) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRows(columns, rows)
	if err != nil {
		t.Fatalf("build dataset: %v", err)
	}
	return ds
}

func priceRows(symbol string, closes []float64) []map[string]interface{} {
	rows := make([]map[string]interface{}, len(closes))
	for i, c := range closes {
		rows[i] = map[string]interface{}{
			"symbol":      symbol,
			"trade_date":  "2024-01-" + string(rune('0'+(i+10)/10)) + string(rune('0'+(i+10)%10)),
			"close_price": c,
		}
	}
	return rows
}

func TestStockPriceTransformerAddsIndicatorColumns(t *testing.T) {
	ds := mustDataset(t, []string{"symbol", "trade_date", "close_price"},
		priceRows("AAPL", []float64{100, 102, 101, 105, 104}))

	out, err := NewStockPriceTransformer().Transform(context.Background(), ds)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	for _, name := range []string{"daily_return", "moving_avg_20d", "moving_avg_50d", "moving_avg_200d", "volatility_20d", "rsi_14d"} {
		if !out.HasColumn(name) {
			t.Errorf("expected derived column %s", name)
		}
	}
	if ds.HasColumn("daily_return") {
		t.Error("input dataset must not be mutated")
	}
}

func TestStockPriceTransformerDailyReturns(t *testing.T) {
	ds := mustDataset(t, []string{"symbol", "trade_date", "close_price"},
		priceRows("AAPL", []float64{100, 110, 99}))

	out, err := NewStockPriceTransformer().Transform(context.Background(), ds)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	returns, _ := out.Column("daily_return")
	if returns[0] != nil {
		t.Errorf("expected first return nil, got %v", returns[0])
	}
	if r := returns[1].(float64); math.Abs(r-0.10) > 1e-9 {
		t.Errorf("expected return 0.10, got %v", r)
	}
	if r := returns[2].(float64); math.Abs(r-(-0.10)) > 1e-9 {
		t.Errorf("expected return -0.10, got %v", r)
	}
}

func TestStockPriceTransformerGroupsBySymbol(t *testing.T) {
	rows := append(priceRows("MSFT", []float64{200, 220}), priceRows("AAPL", []float64{100, 90})...)
	ds := mustDataset(t, []string{"symbol", "trade_date", "close_price"}, rows)

	out, err := NewStockPriceTransformer().Transform(context.Background(), ds)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	symbols, _ := out.Column("symbol")
	if symbols[0] != "AAPL" || symbols[2] != "MSFT" {
		t.Fatalf("expected rows sorted by symbol then date, got %v", symbols)
	}

	returns, _ := out.Column("daily_return")
	// The first row of each symbol has no prior close.
	if returns[0] != nil || returns[2] != nil {
		t.Errorf("expected nil return at each group start, got %v and %v", returns[0], returns[2])
	}
	if r := returns[1].(float64); math.Abs(r-(-0.10)) > 1e-9 {
		t.Errorf("expected AAPL return -0.10, got %v", r)
	}
	if r := returns[3].(float64); math.Abs(r-0.10) > 1e-9 {
		t.Errorf("expected MSFT return 0.10, got %v", r)
	}
}

func TestStockPriceTransformerMovingAverageWarmup(t *testing.T) {
	ds := mustDataset(t, []string{"symbol", "trade_date", "close_price"},
		priceRows("AAPL", []float64{100, 200, 300}))

	out, _ := NewStockPriceTransformer().Transform(context.Background(), ds)
	ma, _ := out.Column("moving_avg_20d")

	want := []float64{100, 150, 200}
	for i, w := range want {
		got := ma[i].(float64)
		if math.Abs(got-w) > 1e-9 {
			t.Errorf("moving_avg_20d[%d]: expected %v, got %v", i, w, got)
		}
	}
}

func TestStockPriceTransformerRSIRequiresFullPeriod(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	ds := mustDataset(t, []string{"symbol", "trade_date", "close_price"}, priceRows("AAPL", closes))

	out, _ := NewStockPriceTransformer().Transform(context.Background(), ds)
	rsi, _ := out.Column("rsi_14d")

	for i := 0; i < 14; i++ {
		if rsi[i] != nil {
			t.Fatalf("expected rsi_14d[%d] nil during warmup, got %v", i, rsi[i])
		}
	}
	// Monotonically rising prices have no losses in the window.
	if got := rsi[14].(float64); got != 100.0 {
		t.Errorf("expected rsi_14d=100 for all gains, got %v", got)
	}
}

func TestStockPriceTransformerMissingColumn(t *testing.T) {
	ds := mustDataset(t, []string{"symbol"}, []map[string]interface{}{{"symbol": "AAPL"}})
	if _, err := NewStockPriceTransformer().Transform(context.Background(), ds); err == nil {
		t.Fatal("expected error for missing close_price column")
	}
}

func TestFinancialRatioTransformer(t *testing.T) {
	ds := mustDataset(t,
		[]string{"total_liabilities", "shareholders_equity", "total_assets", "net_income", "revenue"},
		[]map[string]interface{}{
			{"total_liabilities": 500.0, "shareholders_equity": 250.0, "total_assets": 1000.0, "net_income": 100.0, "revenue": 2000.0},
			{"total_liabilities": 300.0, "shareholders_equity": 0.0, "total_assets": 0.0, "net_income": 50.0, "revenue": 0.0},
		})

	out, err := NewFinancialRatioTransformer().Transform(context.Background(), ds)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	checks := []struct {
		column string
		want   float64
	}{
		{"debt_to_equity", 2.0},
		{"current_ratio", (1000.0 * 0.4) / (500.0 * 0.3)},
		{"quick_ratio", (1000.0 * 0.3) / (500.0 * 0.3)},
		{"roa", 10.0},
		{"roe", 40.0},
		{"profit_margin", 5.0},
		{"asset_turnover", 2.0},
	}
	for _, c := range checks {
		values, ok := out.Column(c.column)
		if !ok {
			t.Fatalf("missing ratio column %s", c.column)
		}
		got := values[0].(float64)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", c.column, c.want, got)
		}
	}

	// Zero denominators in the second row become nulls.
	for _, column := range []string{"debt_to_equity", "roa", "roe", "profit_margin", "asset_turnover"} {
		values, _ := out.Column(column)
		if values[1] != nil {
			t.Errorf("%s: expected nil for zero denominator, got %v", column, values[1])
		}
	}
}
