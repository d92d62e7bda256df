// Package staging moves datasets between pipeline stages through an
// object store: extract output is staged under a logical key and read
// back by validation, transform, and load.
package staging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// Store is the dataset ingress/egress collaborator: datasets go in and
// out as JSON-lines objects under a configured key prefix.
//
// The codec is typed loosely: numbers decode as float64 and timestamps
// as RFC3339 strings. Stages that need declared dtypes re-assert them
// through the schema validator after ingress.
type Store struct {
	storage ObjectStorage
	prefix  string
}

// NewStore creates a staging store.
// Parameters:
//   - storage: backing object storage.
//   - prefix: key prefix for all staged objects, e.g. "staging/".
func NewStore(storage ObjectStorage, prefix string) *Store {
	return &Store{storage: storage, prefix: prefix}
}

type header struct {
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// Put stages a dataset under the given logical key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: logical staging key, extended with the .jsonl suffix.
//   - ds: dataset to stage.
// Returns:
//   - string: durable location identifier of the staged object.
//   - error: non-nil if encoding or upload fails.
func (s *Store) Put(ctx context.Context, key string, ds *dataset.Dataset) (string, error) {
	fullKey := s.objectKey(key)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(header{Columns: ds.ColumnNames(), Rows: ds.RowCount()}); err != nil {
		return "", fmt.Errorf("staging encode header: %w", err)
	}
	for i := 0; i < ds.RowCount(); i++ {
		if err := enc.Encode(ds.Row(i)); err != nil {
			return "", fmt.Errorf("staging encode row %d: %w", i, err)
		}
	}

	if err := s.storage.Upload(ctx, fullKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/x-ndjson"); err != nil {
		return "", err
	}

	location := s.storage.URL(fullKey)
	logger.FromContext(ctx).WithFields(logger.Fields{
		"key":               fullKey,
		"location":          location,
		logger.FieldRecords: ds.RowCount(),
	}).Info("Dataset staged")

	return location, nil
}

// Get reads a staged dataset back by its logical key.
func (s *Store) Get(ctx context.Context, key string) (*dataset.Dataset, error) {
	fullKey := s.objectKey(key)

	body, err := s.storage.Download(ctx, fullKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("staging object %s is empty", fullKey)
	}
	var hdr header
	if err := json.Unmarshal(scanner.Bytes(), &hdr); err != nil {
		return nil, fmt.Errorf("staging decode header: %w", err)
	}

	rows := make([]map[string]interface{}, 0, hdr.Rows)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("staging decode row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("staging read: %w", err)
	}

	ds, err := dataset.FromRows(hdr.Columns, rows)
	if err != nil {
		return nil, fmt.Errorf("staging rebuild dataset: %w", err)
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		"key":               fullKey,
		logger.FieldRecords: ds.RowCount(),
	}).Info("Dataset loaded from staging")

	return ds, nil
}

func (s *Store) objectKey(key string) string {
	key = strings.TrimPrefix(key, s.prefix)
	if !strings.HasSuffix(key, ".jsonl") {
		key += ".jsonl"
	}
	return s.prefix + key
}
