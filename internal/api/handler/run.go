package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/service"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/transform"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

// RunHandler exposes pipeline runs over HTTP.
type RunHandler struct {
	pipeline    *service.PipelineService
	runLogs     *repository.RunLogRepository
	qualityLogs *repository.QualityLogRepository
}

// NewRunHandler creates a new run handler.
func NewRunHandler(
	pipelineService *service.PipelineService,
	runLogs *repository.RunLogRepository,
	qualityLogs *repository.QualityLogRepository,
) *RunHandler {
	return &RunHandler{
		pipeline:    pipelineService,
		runLogs:     runLogs,
		qualityLogs: qualityLogs,
	}
}

// TriggerRunRequest is the POST /runs body.
type TriggerRunRequest struct {
	Source          string                 `json:"source" binding:"required"`
	Target          string                 `json:"target" binding:"required"`
	Policy          string                 `json:"policy"`
	ConflictColumns []string               `json:"conflict_columns"`
	Transformer     string                 `json:"transformer"`
	Params          map[string]interface{} `json:"params"`
}

// TriggerRun runs the pipeline synchronously and returns the outcome.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	var req TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy := warehouse.Policy(req.Policy)
	if req.Policy == "" {
		policy = warehouse.PolicyAppend
	}

	transformer, err := transformerByName(req.Transformer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, runErr := h.pipeline.Run(c.Request.Context(), service.RunRequest{
		Source:          req.Source,
		Target:          req.Target,
		Policy:          policy,
		Params:          pipeline.Params(req.Params),
		ConflictColumns: req.ConflictColumns,
		Transformer:     transformer,
	})

	status := http.StatusOK
	body := gin.H{
		"run_id":            result.RunID,
		"run_uuid":          result.RunUUID,
		"status":            result.Status,
		"records_extracted": result.RecordsExtracted,
		"records_loaded":    result.RecordsLoaded,
		"duration_ms":       result.Duration.Milliseconds(),
	}
	if runErr != nil {
		status = http.StatusUnprocessableEntity
		body["error"] = runErr.Error()
	}
	c.JSON(status, body)
}

// ListRuns returns recent run log entries, optionally filtered by source.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var err error
	var entries interface{}
	if source := c.Query("source"); source != "" {
		entries, err = h.runLogs.ListBySource(c.Request.Context(), source, limit)
	} else {
		entries, err = h.runLogs.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": entries})
}

// ListQuality returns recent data quality entries.
func (h *RunHandler) ListQuality(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.qualityLogs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quality": entries})
}

// ListSources returns the registered source names.
func (h *RunHandler) ListSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.pipeline.Sources()})
}

func transformerByName(name string) (transform.Transformer, error) {
	switch name {
	case "":
		return nil, nil
	case "stock_price":
		return transform.NewStockPriceTransformer(), nil
	case "financial_ratio":
		return transform.NewFinancialRatioTransformer(), nil
	default:
		return nil, &unknownTransformerError{name: name}
	}
}

type unknownTransformerError struct {
	name string
}

func (e *unknownTransformerError) Error() string {
	return "unknown transformer: " + e.name
}
