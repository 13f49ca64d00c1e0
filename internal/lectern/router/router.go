// Package router wires the assistant HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/lectern/internal/lectern/handler"
)

// Register registers the assistant routes on the engine.
func Register(engine *gin.Engine, h *handler.AssistantHandler) {
	engine.GET("/healthz", h.Health)
	engine.GET("/metrics", h.Metrics)

	api := engine.Group("/api")
	{
		api.POST("/query", h.Query)
		api.GET("/courses", h.Courses)
		api.GET("/stats", h.Stats)

		index := api.Group("/index")
		{
			index.POST("/document", h.IndexDocument)
			index.POST("/directory", h.IndexDirectory)
			index.DELETE("", h.ClearIndex)
		}

		api.DELETE("/sessions/:id", h.ResetSession)
	}

	logger.Info("HTTP routes registered")
}
