package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the memory service.
func RegisterRoutes(router *gin.Engine, api *API) {
	v1 := router.Group("/api/v1")

	memories := v1.Group("/memories")
	{
		memories.POST("", api.RememberHandler)
		memories.GET("", api.ListHandler)
		memories.DELETE("", api.PurgeHandler)
		memories.GET("/search", api.SearchHandler)
		memories.GET("/:id", api.GetHandler)
		memories.PUT("/:id", api.UpdateHandler)
		memories.DELETE("/:id", api.DeleteHandler)
		memories.GET("/:id/history", api.MemoryHistoryHandler)
	}

	v1.GET("/history", api.UserHistoryHandler)
}
