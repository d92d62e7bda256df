package staging

import (
	"context"
	"strings"
	"testing"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := NewStore(NewMemoryStorage(), "staging/")
	ctx := context.Background()

	ds, err := dataset.FromColumns([]dataset.Column{
		{Name: "symbol", Values: []interface{}{"AAPL", "MSFT", "GOOG"}},
		{Name: "close_price", Values: []interface{}{150.5, 300.25, nil}},
		{Name: "volume", Values: []interface{}{1000.0, 2000.0, 3000.0}},
	})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}

	location, err := store.Put(ctx, "stock_prices/2024-01-02", ds)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(location, "mem://staging/") {
		t.Errorf("location = %q", location)
	}

	got, err := store.Get(ctx, "stock_prices/2024-01-02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.RowCount() != ds.RowCount() {
		t.Errorf("row count = %d, want %d", got.RowCount(), ds.RowCount())
	}
	want := ds.ColumnNames()
	names := got.ColumnNames()
	if len(names) != len(want) {
		t.Fatalf("column set = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("column[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if got.Value(0, "symbol") != "AAPL" {
		t.Errorf("symbol[0] = %v", got.Value(0, "symbol"))
	}
	if got.Value(2, "close_price") != nil {
		t.Errorf("null cell not preserved: %v", got.Value(2, "close_price"))
	}
	if price, ok := dataset.Float(got.Value(1, "close_price")); !ok || price != 300.25 {
		t.Errorf("close_price[1] = %v", got.Value(1, "close_price"))
	}
}

func TestGetMissingKey(t *testing.T) {
	store := NewStore(NewMemoryStorage(), "staging/")
	if _, err := store.Get(context.Background(), "does/not/exist"); err == nil {
		t.Error("expected error for missing staging key")
	}
}

func TestObjectKeyIdempotentPrefix(t *testing.T) {
	store := NewStore(NewMemoryStorage(), "staging/")
	ctx := context.Background()

	ds, _ := dataset.FromColumns([]dataset.Column{
		{Name: "a", Values: []interface{}{1}},
	})

	// Keys with and without the prefix resolve to the same object.
	if _, err := store.Put(ctx, "staging/run1", ds); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Get(ctx, "run1"); err != nil {
		t.Errorf("Get without prefix: %v", err)
	}
}

func TestEmptyDatasetRoundTrip(t *testing.T) {
	store := NewStore(NewMemoryStorage(), "staging/")
	ctx := context.Background()

	ds, _ := dataset.FromColumns([]dataset.Column{
		{Name: "symbol", Values: nil},
		{Name: "price", Values: nil},
	})

	if _, err := store.Put(ctx, "empty", ds); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RowCount() != 0 || got.ColumnCount() != 2 {
		t.Errorf("got %d rows, %d columns; want 0 rows, 2 columns", got.RowCount(), got.ColumnCount())
	}
}
