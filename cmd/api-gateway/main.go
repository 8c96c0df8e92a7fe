package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/scolaria/scolaria-api/api/swagger"
	"github.com/scolaria/scolaria-api/internal/handler"
	"github.com/scolaria/scolaria-api/internal/middleware"
	"github.com/scolaria/scolaria-api/internal/repository"
	"github.com/scolaria/scolaria-api/internal/service"
	"github.com/scolaria/scolaria-api/pkg/cache"
	"github.com/scolaria/scolaria-api/pkg/config"
	"github.com/scolaria/scolaria-api/pkg/database"
	"github.com/scolaria/scolaria-api/pkg/export"
	"github.com/scolaria/scolaria-api/pkg/logger"
	corsmiddleware "github.com/scolaria/scolaria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/scolaria/scolaria-api/pkg/middleware/requestid"
)

// @title Scolaria API
// @version 1.0.0
// @description Grade aggregation and timetable service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	students := repository.NewStudentRepository(db)
	terms := repository.NewTermRepository(db)
	classes := repository.NewClassRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	scores := repository.NewScoreRepository(db)
	cards := repository.NewReportCardRepository(db)
	sessions := repository.NewSessionRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)
	}

	averageSvc := service.NewAverageService(students, terms, scores, assignments, logr)
	rankSvc := service.NewRankService(classes, students, terms, scores, assignments, logr)
	reportCardSvc := service.NewReportCardService(students, terms, classes, cards, averageSvc, rankSvc, export.NewReportCardPDF(), validate, logr)
	timetableSvc := service.NewTimetableService(sessions, cacheSvc, cfg.Academic.DefaultYear, validate, logr)
	scoreSvc := service.NewScoreService(scores, students, terms, assignments, cfg.Academic.DefaultScoreKind, cfg.Academic.DefaultYear, validate, logr)

	scoreHandler := handler.NewScoreHandler(scoreSvc)
	reportCardHandler := handler.NewReportCardHandler(reportCardSvc, rankSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	scoresGroup := r.Group("/scores")
	{
		scoresGroup.GET("", scoreHandler.List)
		scoresGroup.POST("", scoreHandler.Record)
		scoresGroup.POST("/bulk", scoreHandler.Bulk)
	}

	reportCards := r.Group("/report-cards")
	{
		reportCards.GET("/class/:classId/:termId", reportCardHandler.ClassCards)
		reportCards.GET("/class/:classId/:termId/rank", reportCardHandler.ClassRank)
		reportCards.GET("/:studentId/:termId", reportCardHandler.Fetch)
		reportCards.POST("/:studentId/:termId/generate", reportCardHandler.Generate)
		reportCards.GET("/:studentId/:termId/pdf", reportCardHandler.PDF)
	}

	sessionsGroup := r.Group("/sessions")
	{
		sessionsGroup.POST("", timetableHandler.Create)
		sessionsGroup.POST("/conflicts", timetableHandler.CheckConflicts)
		sessionsGroup.PUT("/:id", timetableHandler.Update)
		sessionsGroup.DELETE("/:id", timetableHandler.Deactivate)
		sessionsGroup.DELETE("/:id/purge", timetableHandler.Purge)
		sessionsGroup.GET("/class/:classId", timetableHandler.ListByClass)
		sessionsGroup.GET("/class/:classId/week", timetableHandler.ClassWeek)
		sessionsGroup.GET("/teacher/:teacherId", timetableHandler.ListByTeacher)
		sessionsGroup.GET("/room/:roomId", timetableHandler.ListByRoom)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
