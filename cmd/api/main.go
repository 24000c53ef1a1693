package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edusuite/school-api/api/swagger"
	"github.com/edusuite/school-api/internal/handler"
	"github.com/edusuite/school-api/internal/middleware"
	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/repository"
	"github.com/edusuite/school-api/internal/service"
	"github.com/edusuite/school-api/pkg/cache"
	"github.com/edusuite/school-api/pkg/config"
	"github.com/edusuite/school-api/pkg/database"
	"github.com/edusuite/school-api/pkg/export"
	"github.com/edusuite/school-api/pkg/logger"
	corsmiddleware "github.com/edusuite/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusuite/school-api/pkg/middleware/requestid"
)

// @title School API
// @version 1.0.0
// @description REST backend for school administration
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	bookRepo := repository.NewBookRepository(db)
	issueRepo := repository.NewBookIssueRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, classRepo, userRepo, nil, logr, cfg.Accounts)
	facultySvc := service.NewFacultyService(facultyRepo, subjectRepo, classRepo, userRepo, nil, logr, cfg.Accounts)
	classSvc := service.NewClassService(classRepo, subjectRepo, cacheRepo, cfg.Cache.TTL, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, userRepo, nil, logr, cfg.Admission)
	bookSvc := service.NewBookService(bookRepo, cacheRepo, cfg.Cache.TTL, nil, logr)
	issueSvc := service.NewBookIssueService(issueRepo, bookRepo, userRepo, userRepo,
		export.NewReceiptRenderer(""), export.NewCSVExporter(), nil, logr, cfg.Library)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	classHandler := handler.NewClassHandler(classSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	bookHandler := handler.NewBookHandler(bookSvc)
	issueHandler := handler.NewBookIssueHandler(issueSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	admissions := api.Group("/admissions")
	{
		admissions.POST("/drafts", admissionHandler.SaveDraft)
		admissions.GET("/drafts/:draftId", admissionHandler.GetDraft)
		admissions.POST("", admissionHandler.Submit)

		review := admissions.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		review.GET("", admissionHandler.List)
		review.GET("/:id", admissionHandler.Get)
		review.PUT("/:id/status", admissionHandler.UpdateStatus)
	}

	protected := api.Group("", middleware.JWT(authSvc))
	{
		staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
		adminOnly := middleware.RequireRoles(models.RoleAdmin)

		students := protected.Group("/students")
		students.GET("", staffOnly, studentHandler.List)
		students.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleFaculty), "SELF"), studentHandler.Get)
		students.POST("", adminOnly, studentHandler.Create)
		students.PUT("/:id", adminOnly, studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)

		faculty := protected.Group("/faculty")
		faculty.GET("", staffOnly, facultyHandler.List)
		faculty.GET("/:id", staffOnly, facultyHandler.Get)
		faculty.POST("", adminOnly, facultyHandler.Create)
		faculty.PUT("/:id", adminOnly, facultyHandler.Update)
		faculty.DELETE("/:id", adminOnly, facultyHandler.Delete)

		classes := protected.Group("/classes")
		classes.GET("", classHandler.List)
		classes.GET("/:id", classHandler.Get)
		classes.POST("", adminOnly, classHandler.Create)
		classes.PUT("/:id", adminOnly, classHandler.Update)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
		classes.POST("/:id/sections", adminOnly, classHandler.AddSection)
		classes.POST("/:id/subjects", adminOnly, classHandler.AssignSubjects)
		classes.DELETE("/:id/subjects/:subjectId", adminOnly, classHandler.RemoveSubject)

		subjects := protected.Group("/subjects")
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.PUT("/:id", adminOnly, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)

		books := protected.Group("/books")
		books.GET("", bookHandler.List)
		books.GET("/isbn/:isbn", bookHandler.GetByISBN)
		books.GET("/:id", bookHandler.Get)
		books.POST("", staffOnly, bookHandler.Create)
		books.PUT("/:id", staffOnly, bookHandler.Update)
		books.DELETE("/:id", staffOnly, bookHandler.Delete)

		issues := protected.Group("/book-issues", staffOnly)
		issues.GET("", issueHandler.List)
		issues.GET("/export", issueHandler.Export)
		issues.GET("/:id", issueHandler.Get)
		issues.POST("", issueHandler.Create)
		issues.PUT("/:id", issueHandler.Update)
		issues.DELETE("/:id", issueHandler.Delete)
		issues.GET("/:id/fine", issueHandler.Fine)
		issues.GET("/:id/receipt", issueHandler.Receipt)

		attendance := protected.Group("/attendance", staffOnly)
		attendance.POST("", attendanceHandler.Mark)
		attendance.GET("", attendanceHandler.List)

		protected.GET("/system/metrics", adminOnly, metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
