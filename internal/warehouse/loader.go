// Package warehouse applies load policies to warehouse tables under an
// at-most-one-concurrent-writer guarantee provided by the distributed
// lock.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/lock"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// Policy is the write strategy applied to a target table.
type Policy string

const (
	PolicyAppend Policy = "append"
	PolicyUpsert Policy = "upsert"
	// PolicyTruncateAndLoad clears the target before inserting. The two
	// steps are not atomic: a crash between them leaves the target
	// empty until the next successful run.
	PolicyTruncateAndLoad Policy = "truncate_and_load"
)

// LoadConfig configures one Write invocation; it is not persisted.
type LoadConfig struct {
	Target string
	Policy Policy
	// ConflictColumns are the key columns for PolicyUpsert; required
	// and non-empty for that policy.
	ConflictColumns []string
	// UpdateColumns default to all non-key dataset columns.
	UpdateColumns []string
	// DisableLock skips the distributed lock. The default (false)
	// wraps the whole write in a scoped acquisition.
	DisableLock bool
	// LockName overrides the lock name; default "load_<target>".
	LockName string
	// BatchSize bounds rows per insert statement; default from the loader.
	BatchSize int
}

// Loader is the warehouse write coordinator.
type Loader struct {
	db               *gorm.DB
	lockStore        lock.Store
	lockOpts         *lock.Options
	defaultBatchSize int
}

// NewLoader creates a write coordinator.
// Parameters:
//   - db: warehouse database handle.
//   - lockStore: backing store for write locks.
//   - lockOpts: lock timing, nil for defaults.
//   - defaultBatchSize: batch size when LoadConfig omits one; values
//     below 1 fall back to 1000.
func NewLoader(db *gorm.DB, lockStore lock.Store, lockOpts *lock.Options, defaultBatchSize int) *Loader {
	if defaultBatchSize < 1 {
		defaultBatchSize = 1000
	}
	return &Loader{
		db:               db,
		lockStore:        lockStore,
		lockOpts:         lockOpts,
		defaultBatchSize: defaultBatchSize,
	}
}

// Write applies cfg.Policy to cfg.Target and returns the affected row
// count. Unless DisableLock is set, the whole write runs under a
// scoped lock acquisition named after the target; failure to acquire
// aborts with *lock.AcquisitionTimeoutError and no write is attempted.
func (l *Loader) Write(ctx context.Context, ds *dataset.Dataset, cfg LoadConfig) (int64, error) {
	if cfg.Target == "" {
		return 0, &ConfigError{Field: "target", Reason: "is required"}
	}
	if cfg.Policy == PolicyUpsert && len(cfg.ConflictColumns) == 0 {
		return 0, &ConfigError{Field: "conflict_columns", Reason: "must be non-empty for upsert"}
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = l.defaultBatchSize
	}

	if cfg.DisableLock {
		return l.perform(ctx, ds, cfg)
	}

	lockName := cfg.LockName
	if lockName == "" {
		lockName = "load_" + cfg.Target
	}

	var rows int64
	writeLock := lock.New(l.lockStore, lockName, l.lockOpts)
	start := time.Now()
	err := writeLock.WithLock(ctx, func(ctx context.Context) error {
		var err error
		rows, err = l.perform(ctx, ds, cfg)
		return err
	})
	if err != nil {
		return 0, err
	}

	// No lease renewal exists; flag writes that outran their lease.
	if l.lockOpts != nil && l.lockOpts.Lease > 0 && time.Since(start) > l.lockOpts.Lease {
		logger.FromContext(ctx).WithFields(logger.Fields{
			"lock_name": lockName,
			"lease":     l.lockOpts.Lease.String(),
		}).Warn("Write outlasted its lock lease")
	}

	return rows, nil
}

func (l *Loader) perform(ctx context.Context, ds *dataset.Dataset, cfg LoadConfig) (int64, error) {
	start := time.Now()

	var rows int64
	var err error
	switch cfg.Policy {
	case PolicyAppend:
		rows, err = l.appendRows(ctx, ds, cfg, nil)
	case PolicyUpsert:
		rows, err = l.upsert(ctx, ds, cfg)
	case PolicyTruncateAndLoad:
		rows, err = l.truncateAndLoad(ctx, ds, cfg)
	default:
		return 0, &ConfigError{Field: "policy", Reason: fmt.Sprintf("unknown policy %q", cfg.Policy)}
	}
	if err != nil {
		return 0, err
	}

	duration := time.Since(start)
	rowsPerSec := 0.0
	if secs := duration.Seconds(); secs > 0 {
		rowsPerSec = float64(rows) / secs
	}
	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldTable:      cfg.Target,
		"policy":               string(cfg.Policy),
		logger.FieldRecords:    rows,
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldRowsPerSec: rowsPerSec,
	}).Info("Warehouse write completed")

	return rows, nil
}

// appendRows inserts all rows in batches of cfg.BatchSize inside one
// transaction (commit on success, rollback on any error). The extra
// clauses parameter lets upsert share the batching path.
func (l *Loader) appendRows(ctx context.Context, ds *dataset.Dataset, cfg LoadConfig, conflict *clause.OnConflict) (int64, error) {
	rows := ds.Rows()
	if len(rows) == 0 {
		return 0, nil
	}

	op := "append"
	if conflict != nil {
		op = "upsert"
	}

	var affected int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(rows) {
				end = len(rows)
			}
			stmt := tx.Table(cfg.Target)
			if conflict != nil {
				stmt = stmt.Clauses(*conflict)
			}
			res := stmt.Create(rows[start:end])
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, &WriteError{Target: cfg.Target, Op: op, Err: err}
	}
	return affected, nil
}

// upsert builds an insert-or-update-on-conflict statement keyed on the
// conflict columns, updating cfg.UpdateColumns (default: all non-key
// dataset columns), batched like append.
func (l *Loader) upsert(ctx context.Context, ds *dataset.Dataset, cfg LoadConfig) (int64, error) {
	keys := make(map[string]struct{}, len(cfg.ConflictColumns))
	conflictCols := make([]clause.Column, len(cfg.ConflictColumns))
	for i, name := range cfg.ConflictColumns {
		keys[name] = struct{}{}
		conflictCols[i] = clause.Column{Name: name}
	}

	updateCols := cfg.UpdateColumns
	if len(updateCols) == 0 {
		for _, name := range ds.ColumnNames() {
			if _, isKey := keys[name]; !isKey {
				updateCols = append(updateCols, name)
			}
		}
	}

	conflict := &clause.OnConflict{
		Columns:   conflictCols,
		DoUpdates: clause.AssignmentColumns(updateCols),
	}
	return l.appendRows(ctx, ds, cfg, conflict)
}

// truncateAndLoad destructively clears the target, then inserts the
// full dataset. The truncate commits before the insert begins.
func (l *Loader) truncateAndLoad(ctx context.Context, ds *dataset.Dataset, cfg LoadConfig) (int64, error) {
	truncate := "TRUNCATE TABLE " + cfg.Target
	if l.db.Dialector.Name() == "sqlite" {
		truncate = "DELETE FROM " + cfg.Target
	}
	if err := l.db.WithContext(ctx).Exec(truncate).Error; err != nil {
		return 0, &WriteError{Target: cfg.Target, Op: "truncate", Err: err}
	}
	logger.FromContext(ctx).WithField(logger.FieldTable, cfg.Target).Info("Table truncated")

	return l.appendRows(ctx, ds, cfg, nil)
}
