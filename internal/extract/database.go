package extract

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// SQLExtractor runs a query against an upstream database and captures
// the result set as a dataset.
type SQLExtractor struct {
	db   *gorm.DB
	name string
}

// NewSQLExtractor creates an extractor bound to an open connection.
// The name identifies the source system in provenance columns.
func NewSQLExtractor(db *gorm.DB, name string) *SQLExtractor {
	if name == "" {
		name = "sql_database"
	}
	return &SQLExtractor{db: db, name: name}
}

func (e *SQLExtractor) Name() string {
	return e.name
}

// Extract runs the query from params and materializes every row.
// Column order follows the result set.
//
// Params:
//   - query: SQL text, required
//   - args: []interface{} of positional bind values, optional
func (e *SQLExtractor) Extract(ctx context.Context, params pipeline.Params) (*dataset.Dataset, error) {
	query, ok := params["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("missing required param: query")
	}
	args, _ := params["args"].([]interface{})

	rows, err := e.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to run extract query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	ds := dataset.New()
	values := make([][]interface{}, len(columns))
	scan := make([]interface{}, len(columns))
	holders := make([]interface{}, len(columns))

	for rows.Next() {
		for i := range holders {
			scan[i] = &holders[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range holders {
			values[i] = append(values[i], normalizeSQLValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read result set: %w", err)
	}

	for i, name := range columns {
		if err := ds.AddColumn(name, values[i]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// normalizeSQLValue converts driver byte slices to strings so downstream
// type inference sees text rather than opaque binary.
func normalizeSQLValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
