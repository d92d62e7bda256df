package dataset

import (
	"fmt"
	"time"
)

// DType identifies the declared type of a column. Inference looks at the
// non-null values only; a column mixing Go types reports DTypeMixed.
type DType string

const (
	DTypeInt      DType = "int64"
	DTypeFloat    DType = "float64"
	DTypeString   DType = "string"
	DTypeBool     DType = "bool"
	DTypeDatetime DType = "datetime"
	DTypeMixed    DType = "mixed"
	DTypeUnknown  DType = "unknown" // all-null or empty column
)

// Column is a named, ordered sequence of values. A nil value is a null cell.
type Column struct {
	Name   string
	Values []interface{}
}

// Dataset is the in-memory tabular unit passed between pipeline stages:
// ordered named columns of equal length. Stages and validators never
// mutate a Dataset they receive; transformations return a new one.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New creates an empty dataset with no columns and no rows.
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// FromColumns builds a dataset from columns in the given order.
// Parameters:
//   - cols: columns to include; all must have equal length.
// Returns:
//   - *Dataset: dataset holding the columns.
//   - error: non-nil on duplicate names or length mismatch.
func FromColumns(cols []Column) (*Dataset, error) {
	ds := New()
	for _, c := range cols {
		if err := ds.AddColumn(c.Name, c.Values); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// FromRows builds a dataset from row maps with an explicit column order.
// Cells absent from a row become nulls.
func FromRows(columns []string, rows []map[string]interface{}) (*Dataset, error) {
	ds := New()
	for _, name := range columns {
		values := make([]interface{}, len(rows))
		for i, row := range rows {
			values[i] = row[name]
		}
		if err := ds.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// AddColumn appends a column to the dataset. The first column fixes the
// row count; later columns must match it.
func (d *Dataset) AddColumn(name string, values []interface{}) error {
	if _, exists := d.index[name]; exists {
		return fmt.Errorf("dataset: duplicate column %q", name)
	}
	if len(d.columns) > 0 && len(values) != d.rows {
		return fmt.Errorf("dataset: column %q has %d values, want %d", name, len(values), d.rows)
	}
	if len(d.columns) == 0 {
		d.rows = len(values)
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, Column{Name: name, Values: values})
	return nil
}

// AddConstColumn appends a column where every row holds the same value.
func (d *Dataset) AddConstColumn(name string, value interface{}) error {
	values := make([]interface{}, d.rows)
	for i := range values {
		values[i] = value
	}
	return d.AddColumn(name, values)
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int { return d.rows }

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int { return len(d.columns) }

// ColumnNames returns the column names in dataset order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the values of the named column.
// Parameters:
//   - name: column name.
// Returns:
//   - []interface{}: cell values, nil entries are nulls.
//   - bool: false when the column does not exist.
func (d *Dataset) Column(name string) ([]interface{}, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i].Values, true
}

// Value returns the cell at (row, column); nil for nulls or missing columns.
func (d *Dataset) Value(row int, name string) interface{} {
	values, ok := d.Column(name)
	if !ok || row < 0 || row >= len(values) {
		return nil
	}
	return values[row]
}

// Row materializes row i as a column-name keyed map.
func (d *Dataset) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(d.columns))
	for _, c := range d.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// Rows materializes every row in order. Used by the warehouse loader to
// build batched insert statements.
func (d *Dataset) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, d.rows)
	for i := 0; i < d.rows; i++ {
		rows[i] = d.Row(i)
	}
	return rows
}

// NullCount returns the number of null cells in the named column.
func (d *Dataset) NullCount(name string) int {
	values, ok := d.Column(name)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range values {
		if v == nil {
			n++
		}
	}
	return n
}

// TotalCells returns rows * columns.
func (d *Dataset) TotalCells() int { return d.rows * len(d.columns) }

// TotalNulls returns the number of null cells across all columns.
func (d *Dataset) TotalNulls() int {
	n := 0
	for _, c := range d.columns {
		n += d.NullCount(c.Name)
	}
	return n
}

// DTypeOf infers the declared type of a column from its non-null values.
func (d *Dataset) DTypeOf(name string) DType {
	values, ok := d.Column(name)
	if !ok {
		return DTypeUnknown
	}
	current := DTypeUnknown
	for _, v := range values {
		if v == nil {
			continue
		}
		t := valueDType(v)
		if current == DTypeUnknown {
			current = t
		} else if current != t {
			return DTypeMixed
		}
	}
	return current
}

func valueDType(v interface{}) DType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return DTypeInt
	case float32, float64:
		return DTypeFloat
	case string:
		return DTypeString
	case bool:
		return DTypeBool
	case time.Time:
		return DTypeDatetime
	default:
		return DTypeMixed
	}
}

// Copy returns a deep copy of the dataset. Cell values themselves are
// shared; they are treated as immutable scalars throughout the pipeline.
func (d *Dataset) Copy() *Dataset {
	out := New()
	for _, c := range d.columns {
		values := make([]interface{}, len(c.Values))
		copy(values, c.Values)
		// AddColumn cannot fail here: names are unique and lengths match.
		_ = out.AddColumn(c.Name, values)
	}
	return out
}

// Float converts a numeric cell to float64.
// Parameters:
//   - v: cell value.
// Returns:
//   - float64: converted value.
//   - bool: false for nulls and non-numeric values.
func Float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String converts a cell to its string form; ok is false for nulls.
func String(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}
