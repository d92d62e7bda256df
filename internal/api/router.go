package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/api/handler"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/api/middleware"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	db *gorm.DB,
	pipelineService *service.PipelineService,
	runLogs *repository.RunLogRepository,
	qualityLogs *repository.QualityLogRepository,
	log *logger.Logger,
	mode string,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))

	healthHandler := handler.NewHealthHandler(db)
	runHandler := handler.NewRunHandler(pipelineService, runLogs, qualityLogs)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/runs", runHandler.TriggerRun)
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/quality", runHandler.ListQuality)
		v1.GET("/sources", runHandler.ListSources)
	}

	return r
}
