package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports service liveness and warehouse reachability.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health pings the warehouse and reports overall status. A reachable
// warehouse yields 200, anything else 503.
func (h *HealthHandler) Health(c *gin.Context) {
	warehouse := "up"
	status := "ok"
	code := http.StatusOK

	if err := h.pingWarehouse(c); err != nil {
		warehouse = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   "financial-etl",
		"warehouse": warehouse,
	})
}

func (h *HealthHandler) pingWarehouse(c *gin.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
