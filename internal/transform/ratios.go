package transform

import (
	"context"
	"fmt"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

// FinancialRatioTransformer derives leverage, liquidity and
// profitability ratios from company fundamentals. Ratios with a zero
// or null denominator come out as nulls.
type FinancialRatioTransformer struct{}

func NewFinancialRatioTransformer() *FinancialRatioTransformer {
	return &FinancialRatioTransformer{}
}

func (t *FinancialRatioTransformer) Name() string {
	return "financial_ratio_transformer"
}

// Estimated splits of the balance sheet used by the liquidity ratios.
const (
	currentAssetsShare      = 0.4
	quickAssetsShare        = 0.3
	currentLiabilitiesShare = 0.3
)

func (t *FinancialRatioTransformer) Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	required := []string{"total_liabilities", "shareholders_equity", "total_assets", "net_income", "revenue"}
	for _, name := range required {
		if !ds.HasColumn(name) {
			return nil, fmt.Errorf("financial ratio transform requires column %q", name)
		}
	}

	out := ds.Copy()
	liabilities, _ := out.Column("total_liabilities")
	equity, _ := out.Column("shareholders_equity")
	assets, _ := out.Column("total_assets")
	income, _ := out.Column("net_income")
	revenue, _ := out.Column("revenue")
	n := out.RowCount()

	debtToEquity := make([]interface{}, n)
	currentRatio := make([]interface{}, n)
	quickRatio := make([]interface{}, n)
	roa := make([]interface{}, n)
	roe := make([]interface{}, n)
	profitMargin := make([]interface{}, n)
	assetTurnover := make([]interface{}, n)

	for i := 0; i < n; i++ {
		debtToEquity[i] = safeDivide(liabilities[i], equity[i], 1)
		currentRatio[i] = safeDivideScaled(assets[i], currentAssetsShare, liabilities[i], currentLiabilitiesShare)
		quickRatio[i] = safeDivideScaled(assets[i], quickAssetsShare, liabilities[i], currentLiabilitiesShare)
		roa[i] = safeDivide(income[i], assets[i], 100)
		roe[i] = safeDivide(income[i], equity[i], 100)
		profitMargin[i] = safeDivide(income[i], revenue[i], 100)
		assetTurnover[i] = safeDivide(revenue[i], assets[i], 1)
	}

	cols := []struct {
		name   string
		values []interface{}
	}{
		{"debt_to_equity", debtToEquity},
		{"current_ratio", currentRatio},
		{"quick_ratio", quickRatio},
		{"roa", roa},
		{"roe", roe},
		{"profit_margin", profitMargin},
		{"asset_turnover", assetTurnover},
	}
	for _, c := range cols {
		if err := out.AddColumn(c.name, c.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// safeDivide returns scale*num/den, or nil when either side is null or
// the denominator is zero.
func safeDivide(num, den interface{}, scale float64) interface{} {
	n, okN := dataset.Float(num)
	d, okD := dataset.Float(den)
	if !okN || !okD || d == 0 {
		return nil
	}
	return scale * n / d
}

func safeDivideScaled(num interface{}, numShare float64, den interface{}, denShare float64) interface{} {
	n, okN := dataset.Float(num)
	d, okD := dataset.Float(den)
	if !okN || !okD || d*denShare == 0 {
		return nil
	}
	return (n * numShare) / (d * denShare)
}
