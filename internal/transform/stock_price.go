package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

// StockPriceTransformer adds technical indicators to daily price data:
// daily returns, 20/50/200 day moving averages, 20 day volatility and
// 14 day RSI. Rows are computed per symbol in trade date order.
type StockPriceTransformer struct {
	maWindows        []int
	volatilityWindow int
	rsiPeriod        int
}

func NewStockPriceTransformer() *StockPriceTransformer {
	return &StockPriceTransformer{
		maWindows:        []int{20, 50, 200},
		volatilityWindow: 20,
		rsiPeriod:        14,
	}
}

func (t *StockPriceTransformer) Name() string {
	return "stock_price_transformer"
}

func (t *StockPriceTransformer) Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	for _, required := range []string{"symbol", "trade_date", "close_price"} {
		if !ds.HasColumn(required) {
			return nil, fmt.Errorf("stock price transform requires column %q", required)
		}
	}

	order := sortedRowOrder(ds)
	out := reorderRows(ds, order)

	symbols, _ := out.Column("symbol")
	closes, _ := out.Column("close_price")
	n := out.RowCount()

	dailyReturns := make([]interface{}, n)
	maValues := make(map[int][]interface{}, len(t.maWindows))
	for _, w := range t.maWindows {
		maValues[w] = make([]interface{}, n)
	}
	volatility := make([]interface{}, n)
	rsi := make([]interface{}, n)

	for _, group := range symbolGroups(symbols) {
		groupCloses := make([]interface{}, len(group))
		for i, row := range group {
			groupCloses[i] = closes[row]
		}

		returns := pctChange(groupCloses)
		groupVol := rollingStd(returns, t.volatilityWindow)
		groupRSI := relativeStrengthIndex(groupCloses, t.rsiPeriod)

		for i, row := range group {
			dailyReturns[row] = returns[i]
			volatility[row] = groupVol[i]
			rsi[row] = groupRSI[i]
		}
		for _, w := range t.maWindows {
			groupMA := rollingMean(groupCloses, w)
			for i, row := range group {
				maValues[w][row] = groupMA[i]
			}
		}
	}

	if err := out.AddColumn("daily_return", dailyReturns); err != nil {
		return nil, err
	}
	for _, w := range t.maWindows {
		if err := out.AddColumn(fmt.Sprintf("moving_avg_%dd", w), maValues[w]); err != nil {
			return nil, err
		}
	}
	if err := out.AddColumn(fmt.Sprintf("volatility_%dd", t.volatilityWindow), volatility); err != nil {
		return nil, err
	}
	if err := out.AddColumn(fmt.Sprintf("rsi_%dd", t.rsiPeriod), rsi); err != nil {
		return nil, err
	}
	return out, nil
}

// pctChange is close[i]/close[i-1] - 1. The first row and any row
// adjacent to a null close yields nil.
func pctChange(closes []interface{}) []interface{} {
	out := make([]interface{}, len(closes))
	for i := 1; i < len(closes); i++ {
		cur, okCur := dataset.Float(closes[i])
		prev, okPrev := dataset.Float(closes[i-1])
		if !okCur || !okPrev || prev == 0 {
			continue
		}
		out[i] = cur/prev - 1
	}
	return out
}

// relativeStrengthIndex computes Wilder-style RSI using simple rolling
// means of gains and losses. Rows before a full period yield nil, as
// does a window with neither gains nor losses.
func relativeStrengthIndex(closes []interface{}, period int) []interface{} {
	n := len(closes)
	gains := make([]interface{}, n)
	losses := make([]interface{}, n)
	for i := 1; i < n; i++ {
		cur, okCur := dataset.Float(closes[i])
		prev, okPrev := dataset.Float(closes[i-1])
		if !okCur || !okPrev {
			continue
		}
		delta := cur - prev
		if delta > 0 {
			gains[i] = delta
			losses[i] = 0.0
		} else {
			gains[i] = 0.0
			losses[i] = -delta
		}
	}

	out := make([]interface{}, n)
	for i := period; i < n; i++ {
		gainSum, lossSum := 0.0, 0.0
		complete := true
		for j := i - period + 1; j <= i; j++ {
			g, okG := dataset.Float(gains[j])
			l, okL := dataset.Float(losses[j])
			if !okG || !okL {
				complete = false
				break
			}
			gainSum += g
			lossSum += l
		}
		if !complete {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = nil
		case avgLoss == 0:
			out[i] = 100.0
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - (100 / (1 + rs))
		}
	}
	return out
}

// sortedRowOrder returns row indices ordered by (symbol, trade_date).
// The sort is stable so equal keys keep their input order.
func sortedRowOrder(ds *dataset.Dataset) []int {
	symbols, _ := ds.Column("symbol")
	dates, _ := ds.Column("trade_date")

	order := make([]int, ds.RowCount())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, _ := dataset.String(symbols[order[a]])
		sb, _ := dataset.String(symbols[order[b]])
		if sa != sb {
			return sa < sb
		}
		da, _ := dataset.String(dates[order[a]])
		db, _ := dataset.String(dates[order[b]])
		return da < db
	})
	return order
}

// reorderRows builds a new dataset with rows permuted by order.
func reorderRows(ds *dataset.Dataset, order []int) *dataset.Dataset {
	out := dataset.New()
	for _, name := range ds.ColumnNames() {
		values, _ := ds.Column(name)
		permuted := make([]interface{}, len(order))
		for i, row := range order {
			permuted[i] = values[row]
		}
		out.AddColumn(name, permuted)
	}
	return out
}

// symbolGroups returns row indices grouped by symbol value, assuming
// the slice is already sorted by symbol.
func symbolGroups(symbols []interface{}) [][]int {
	var groups [][]int
	var current []int
	var currentKey string
	for i, v := range symbols {
		key, _ := dataset.String(v)
		if i == 0 || key != currentKey {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = nil
			currentKey = key
		}
		current = append(current, i)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
