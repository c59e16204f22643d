package app

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"agencycrm/internal/config"
	"agencycrm/internal/handlers"
	"agencycrm/internal/middleware"
	"agencycrm/internal/pdf"
	"agencycrm/internal/repositories"
	"agencycrm/internal/routes"
	"agencycrm/internal/services"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "agencycrm/docs"
)

func Run() {
	cfg := config.LoadConfig()
	middleware.SetSigningKey(cfg.JWT.Secret)

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database connection")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close database")
		}
	}()

	// === Repos ===
	leadRepo := repositories.NewLeadRepository(db)
	stageRepo := repositories.NewStageRepository(db)
	userRepo := repositories.NewUserRepository(db)
	emailLogRepo := repositories.NewEmailLogRepository(db)

	// === Services ===
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	telegramService, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		// the ops channel is optional; run without it
		logrus.WithError(err).Warn("telegram disabled")
		telegramService = nil
	}

	userService := services.NewUserService(userRepo)
	leadService := services.NewLeadService(leadRepo, stageRepo)
	leadService.Logs = emailLogRepo
	stageService := services.NewStageService(stageRepo)

	transitionService := services.NewTransitionService(leadRepo, stageRepo)
	transitionService.Email = emailService
	transitionService.Users = userRepo
	transitionService.Logs = emailLogRepo

	reminderService := services.NewReminderService(leadRepo, userRepo, emailService, emailLogRepo)
	reminderService.Telegram = telegramService
	reminderService.AdminEmail = cfg.Reminders.AdminEmail
	reminderService.SiteURL = cfg.Reminders.SiteURL

	reportService := services.NewReportService(leadRepo, pdf.NewReportGenerator())

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	leadHandler := handlers.NewLeadHandler(leadService, transitionService)
	pipelineHandler := handlers.NewPipelineHandler(stageService)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	reportHandler := handlers.NewReportHandler(reportService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		userHandler,
		leadHandler,
		pipelineHandler,
		reminderHandler,
		reportHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logrus.WithField("addr", listenAddr).Info("server listening")
	if err := router.Run(listenAddr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
