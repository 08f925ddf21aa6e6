package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gobfda/internal"
	"gobfda/internal/metrics"
)

// NewRouter wires the simulation routes, /metrics and /healthz
func NewRouter(h *SimulationHandler, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(internal.DefaultLogger.With("HTTP")))

	api := router.Group("/api")
	{
		api.POST("/simulations", h.HandleCreateSimulation())
		api.GET("/simulations", h.HandleListSimulations())
		api.GET("/simulations/:id", h.HandleGetSimulation())
		api.DELETE("/simulations/:id", h.HandleDeleteSimulation())
		api.POST("/simulations/:id/analyze", h.HandleAnalyze())
		api.POST("/simulations/:id/ssd", h.HandleSampleSize())
		api.GET("/simulations/:id/report", h.HandleReport())
		api.GET("/runs/:run", h.HandleGetRun())
		api.GET("/runs/:run/events", h.HandleRunEvents())
	}

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%.1fms)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000)
	}
}
