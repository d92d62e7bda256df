package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// CSVExtractor reads a delimited file with a header row. Empty fields
// become nulls and numeric looking fields are converted to int64 or
// float64.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

func (e *CSVExtractor) Name() string {
	return "csv_file"
}

// Extract reads the file from params.
//
// Params:
//   - path: file path, required
//   - delimiter: single character string, optional, defaults to ","
func (e *CSVExtractor) Extract(ctx context.Context, params pipeline.Params) (*dataset.Dataset, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required param: path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if d, ok := params["delimiter"].(string); ok && d != "" {
		reader.Comma = rune(d[0])
	}
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s has no header row", path)
	}

	header := records[0]
	values := make([][]interface{}, len(header))
	for _, record := range records[1:] {
		// Short rows get trailing nulls so every column stays aligned.
		for i := range header {
			if i < len(record) {
				values[i] = append(values[i], parseCSVField(record[i]))
			} else {
				values[i] = append(values[i], nil)
			}
		}
	}

	ds := dataset.New()
	for i, name := range header {
		if err := ds.AddColumn(strings.TrimSpace(name), values[i]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func parseCSVField(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
