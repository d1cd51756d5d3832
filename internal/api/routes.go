package api

import (
	"donation-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by SetupRoutes
type Handlers struct {
	Transactions *TransactionHandler
	Directory    *DirectoryHandler
	APIKey       string
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h Handlers) {
	// API route group
	api := r.Group("/api")
	api.Use(middleware.APIKeyMiddleware(h.APIKey))
	{
		// Equipment transaction routes
		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.Transactions.CreateTransaction)
			transactions.GET("", h.Transactions.ListTransactions)
			transactions.GET("/:id", h.Transactions.GetTransaction)
			transactions.PATCH("/:id", h.Transactions.UpdateTransaction)
			transactions.PUT("/:id", h.Transactions.UpdateTransaction)
			transactions.DELETE("/:id", h.Transactions.DeleteTransaction)
			transactions.GET("/:id/history", h.Transactions.GetTransactionHistory)
		}

		// Directory management routes (for admin use)
		admin := api.Group("/admin")
		{
			admin.GET("/schools", h.Directory.GetSchools)
			admin.POST("/schools", h.Directory.CreateSchool)
			admin.GET("/schools/:id", h.Directory.GetSchool)

			admin.GET("/govern-bodies", h.Directory.GetGovernBodies)
			admin.POST("/govern-bodies", h.Directory.CreateGovernBody)
			admin.GET("/govern-bodies/:id", h.Directory.GetGovernBody)

			admin.GET("/equipment", h.Directory.GetEquipmentList)
			admin.POST("/equipment", h.Directory.CreateEquipment)
			admin.GET("/equipment/:id", h.Directory.GetEquipment)
		}
	}

	// Health check
	r.GET("/health", Health)
}
