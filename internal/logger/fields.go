package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldRunID is the pipeline run ID (UUID)
	FieldRunID = "run_id"

	// FieldRequestID identifies one API request
	FieldRequestID = "request_id"

	// FieldStage is the pipeline stage name
	FieldStage = "stage"

	// FieldSource is the data source identifier
	FieldSource = "source"

	// FieldTable is the warehouse target table
	FieldTable = "table"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldRecords is a record count
	FieldRecords = "records"

	// FieldRowsPerSec is write throughput in rows per second
	FieldRowsPerSec = "rows_per_sec"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
