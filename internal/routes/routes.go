package routes

import (
	"github.com/gin-gonic/gin"

	"agencycrm/internal/authz"
	"agencycrm/internal/handlers"
	"agencycrm/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	leadHandler *handlers.LeadHandler,
	pipelineHandler *handlers.PipelineHandler,
	reminderHandler *handlers.ReminderHandler,
	reportHandler *handlers.ReportHandler,
) *gin.Engine {

	// ---- public
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// ---- protected
	r.Use(middleware.AuthMiddleware())

	// USERS (admin)
	users := r.Group("/users", middleware.RequireRoles(authz.RoleAdmin))
	{
		users.POST("/", userHandler.Create)
		users.GET("/", userHandler.List)
		users.GET("/:id", userHandler.GetByID)
		users.DELETE("/:id", userHandler.Delete)
	}

	// LEADS (leads are never hard-deleted; terminal stages end the flow)
	leads := r.Group("/leads")
	{
		leads.POST("/", leadHandler.Create)
		leads.GET("/", leadHandler.List)
		leads.GET("/:id", leadHandler.GetByID)
		leads.PUT("/:id", leadHandler.Update)
		leads.POST("/:id/stage", leadHandler.UpdateStage)
		leads.GET("/:id/emails", leadHandler.EmailHistory)
	}

	// PIPELINE CATALOG
	pipelines := r.Group("/pipelines")
	{
		pipelines.GET("/", pipelineHandler.List)
		pipelines.GET("/:id/stages", pipelineHandler.ListStages)
	}

	// REMINDERS (scheduler-facing; manager/admin)
	reminders := r.Group("/reminders",
		middleware.RequireRoles(authz.RoleManager, authz.RoleAdmin),
	)
	{
		reminders.POST("/run", reminderHandler.Run)
	}

	// REPORTS (manager/admin)
	reports := r.Group("/reports",
		middleware.RequireRoles(authz.RoleManager, authz.RoleAdmin),
	)
	{
		reports.GET("/monthly", reportHandler.Monthly)
		reports.GET("/monthly/pdf", reportHandler.MonthlyPDF)
	}

	return r
}
