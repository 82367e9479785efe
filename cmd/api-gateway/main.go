package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/asmil/asmil-api/api/swagger"
	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/handler"
	"github.com/asmil/asmil-api/internal/middleware"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/cache"
	"github.com/asmil/asmil-api/pkg/config"
	"github.com/asmil/asmil-api/pkg/database"
	"github.com/asmil/asmil-api/pkg/jobs"
	"github.com/asmil/asmil-api/pkg/logger"
	corsmiddleware "github.com/asmil/asmil-api/pkg/middleware/cors"
	reqidmiddleware "github.com/asmil/asmil-api/pkg/middleware/requestid"
	"github.com/asmil/asmil-api/pkg/storage"
)

// @title ASMiL Administration API
// @version 1.0.0
// @description Back office of the ASMiL institute: students, sessions, billing, reconciliation and administration.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Warn("unknown timezone, falling back to UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		location = time.UTC
	}
	now := func() time.Time { return time.Now().In(location) }

	db, err := database.NewPostgres(cfg.Database, cfg.Timezone)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Cache.Enabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, aggregate cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			redisRepo := repository.NewCacheRepository(redisClient, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cacheEnabled)

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	backupFiles, err := storage.NewLocalStorage(cfg.Backups.Dir)
	if err != nil {
		logr.Fatal("failed to prepare backup storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Backups.SignedURLSecret, cfg.Backups.SignedURLTTL)

	txRunner := service.TxRunner(func(ctx context.Context, fn func(*sqlx.Tx) error) error {
		return database.WithTx(ctx, db, fn)
	})

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	formationRepo := repository.NewFormationRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	backupRepo := repository.NewBackupRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	validate := validator.New()
	exportSvc := service.NewExportService("ASMiL", logr)
	auditSvc := service.NewAuditService(auditRepo, exportSvc, logr)
	settingSvc := service.NewSettingService(settingRepo, auditSvc, validate, logr)
	imageSvc := service.NewImageService(uploads, service.ImageConfig{
		PublicPath:   cfg.Uploads.PublicPath,
		MaxFileBytes: cfg.Uploads.MaxFileSizeBytes,
		Size:         cfg.Uploads.AvatarSize,
	}, logr)

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, imageSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, sequenceRepo, imageSvc, cacheSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	formationSvc := service.NewFormationService(formationRepo, moduleRepo, cacheSvc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, moduleRepo, teacherRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Enrollments:    enrollmentRepo,
		Invoices:       invoiceRepo,
		Sequences:      sequenceRepo,
		Students:       studentRepo,
		Sessions:       sessionRepo,
		Formations:     formationRepo,
		Tx:             txRunner,
		Cache:          cacheSvc,
		Validator:      validate,
		Logger:         logr,
		InvoiceDueDays: cfg.Finance.InvoiceDueDays,
	})
	invoiceSvc := service.NewInvoiceService(invoiceRepo, paymentRepo, enrollmentRepo, sequenceRepo, cacheSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, invoiceRepo, invoiceSvc, txRunner, enrollmentRepo, metricsSvc, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, txRunner, cacheSvc, validate, logr)
	certificateSvc := service.NewCertificateService(service.CertificateServiceParams{
		Certificates: certificateRepo,
		Enrollments:  enrollmentRepo,
		Grades:       gradeRepo,
		Attendance:   attendanceRepo,
		Sequences:    sequenceRepo,
		Validator:    validate,
		Logger:       logr,
		Organisation: "ASMiL",
	})
	announcementSvc := service.NewAnnouncementService(announcementRepo, cacheSvc, validate, logr)

	financeSvc := service.NewFinanceService(
		invoiceRepo,
		paymentRepo,
		enrollmentRepo,
		studentRepo,
		formationRepo,
		cacheSvc,
		metricsSvc,
		exportSvc,
		service.FinanceConfig{
			CacheTTL: cfg.Finance.CacheTTL,
			Options: finance.Options{
				TrendMonths:    cfg.Finance.TrendMonths,
				TopFormations:  cfg.Finance.TopFormations,
				ForecastWindow: cfg.Finance.ForecastMonths,
				UnpaidLimit:    cfg.Finance.UnpaidListLimit,
			},
			Location: location,
		},
		logr,
	)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Finance:       financeSvc,
		Students:      studentRepo,
		Enrollments:   enrollmentRepo,
		Attendance:    attendanceRepo,
		Payments:      paymentRepo,
		Announcements: announcementRepo,
		Users:         userRepo,
		Sessions:      sessionRepo,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:            cfg.Dashboard.CacheTTL,
			RecentPaymentsLimit: cfg.Finance.RecentPaymentsMax,
			Location:            location,
		},
	})
	backupSvc := service.NewBackupService(service.BackupServiceParams{
		Store:    backupRepo,
		Files:    backupFiles,
		Signer:   signer,
		Metrics:  metricsSvc,
		Settings: settingSvc,
		Audit:    auditSvc,
		Cache:    cacheSvc,
		Logger:   logr,
		Config: service.BackupConfig{
			Retention:      cfg.Backups.Retention,
			MaxImportBytes: cfg.Backups.MaxImportBytes,
			DownloadPath:   cfg.APIPrefix + "/backups/download",
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupQueue := jobs.NewQueue("backups", backupSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Backups.Workers,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
	backupQueue.Start(ctx)
	scheduler := jobs.NewScheduler(backupQueue, logr)
	if err := scheduler.Every(cfg.Backups.Schedule, service.JobTypeScheduledBackup, nil); err != nil {
		logr.Fatal("invalid backup schedule", zap.Error(err))
	}
	scheduler.Start()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.Static(cfg.Uploads.PublicPath, cfg.Uploads.Dir)

	h := handlers{
		auth:          handler.NewAuthHandler(authSvc, userSvc),
		users:         handler.NewUserHandler(userSvc, cfg.Uploads.MaxFileSizeBytes),
		students:      handler.NewStudentHandler(studentSvc, cfg.Uploads.MaxFileSizeBytes),
		teachers:      handler.NewTeacherHandler(teacherSvc),
		formations:    handler.NewFormationHandler(formationSvc),
		sessions:      handler.NewSessionHandler(sessionSvc),
		enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		invoices:      handler.NewInvoiceHandler(invoiceSvc),
		payments:      handler.NewPaymentHandler(paymentSvc),
		grades:        handler.NewGradeHandler(gradeSvc),
		attendance:    handler.NewAttendanceHandler(attendanceSvc),
		certificates:  handler.NewCertificateHandler(certificateSvc),
		announcements: handler.NewAnnouncementHandler(announcementSvc),
		settings:      handler.NewSettingHandler(settingSvc),
		audit:         handler.NewAuditHandler(auditSvc),
		backups:       handler.NewBackupHandler(backupSvc, backupQueue, cfg.Backups.MaxImportBytes),
		finance:       handler.NewFinanceHandler(financeSvc, now),
		dashboard:     handler.NewDashboardHandler(dashboardSvc, now),
		metrics:       metricsHandler,
	}
	registerRoutes(r.Group(cfg.APIPrefix), h, authSvc, auditSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	backupQueue.Stop()
}

type handlers struct {
	auth          *handler.AuthHandler
	users         *handler.UserHandler
	students      *handler.StudentHandler
	teachers      *handler.TeacherHandler
	formations    *handler.FormationHandler
	sessions      *handler.SessionHandler
	enrollments   *handler.EnrollmentHandler
	invoices      *handler.InvoiceHandler
	payments      *handler.PaymentHandler
	grades        *handler.GradeHandler
	attendance    *handler.AttendanceHandler
	certificates  *handler.CertificateHandler
	announcements *handler.AnnouncementHandler
	settings      *handler.SettingHandler
	audit         *handler.AuditHandler
	backups       *handler.BackupHandler
	finance       *handler.FinanceHandler
	dashboard     *handler.DashboardHandler
	metrics       *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h handlers, tokens middleware.TokenValidator, audit middleware.AuditWriter, logr *zap.Logger) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleGestionnaire)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf)
	audited := func(resource string) gin.HandlerFunc {
		return middleware.Audit(audit, logr, resource)
	}

	api.POST("/auth/login", h.auth.Login)
	api.GET("/backups/download/:token", h.backups.Download)

	protected := api.Group("", middleware.JWT(tokens))

	authGroup := protected.Group("/auth")
	authGroup.GET("/me", h.auth.Me)
	authGroup.PUT("/profile/:id", adminOrSelf, audited("users"), h.users.UpdateProfile)
	authGroup.PUT("/change-password/:id", adminOrSelf, h.auth.ChangePassword)
	authGroup.POST("/upload-avatar/:id", adminOrSelf, audited("users"), h.users.UploadAvatar)

	users := authGroup.Group("/users", admin, audited("users"))
	users.GET("", h.users.List)
	users.GET("/:id", h.users.Get)
	users.POST("", h.users.Create)
	users.PUT("/:id", h.users.Update)
	users.DELETE("/:id", h.users.Delete)

	students := protected.Group("/students", staff, audited("students"))
	students.GET("", h.students.List)
	students.GET("/:id", h.students.Get)
	students.POST("", h.students.Create)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)
	students.POST("/:id/photo", h.students.UploadPhoto)

	teachers := protected.Group("/teachers", staff, audited("teachers"))
	teachers.GET("", h.teachers.List)
	teachers.GET("/:id", h.teachers.Get)
	teachers.POST("", admin, h.teachers.Create)
	teachers.PUT("/:id", admin, h.teachers.Update)
	teachers.DELETE("/:id", admin, h.teachers.Delete)

	formations := protected.Group("/formations", staff, audited("formations"))
	formations.GET("", h.formations.List)
	formations.GET("/:id", h.formations.Get)
	formations.GET("/:id/modules", h.formations.FormationModules)
	formations.POST("", admin, h.formations.Create)
	formations.PUT("/:id", admin, h.formations.Update)
	formations.DELETE("/:id", admin, h.formations.Delete)

	modules := protected.Group("/modules", staff, audited("modules"))
	modules.GET("", h.formations.ListModules)
	modules.GET("/:id", h.formations.GetModule)
	modules.POST("", admin, h.formations.CreateModule)
	modules.PUT("/:id", admin, h.formations.UpdateModule)
	modules.DELETE("/:id", admin, h.formations.DeleteModule)

	sessions := protected.Group("/sessions", staff, audited("sessions"))
	sessions.GET("", h.sessions.List)
	sessions.GET("/:id", h.sessions.Get)
	sessions.POST("", admin, h.sessions.Create)
	sessions.PUT("/:id", admin, h.sessions.Update)
	sessions.DELETE("/:id", admin, h.sessions.Delete)
	protected.GET("/timetable", staff, h.sessions.Timetable)

	enrollments := protected.Group("/enrollments", staff, audited("enrollments"))
	enrollments.GET("", h.enrollments.List)
	enrollments.GET("/:id", h.enrollments.Get)
	enrollments.POST("", h.enrollments.Create)
	enrollments.PUT("/:id", h.enrollments.Update)
	enrollments.DELETE("/:id", h.enrollments.Delete)

	invoices := protected.Group("/invoices", staff, audited("invoices"))
	invoices.GET("", h.invoices.List)
	invoices.GET("/stats", h.finance.Stats)
	invoices.GET("/:id", h.invoices.Get)
	invoices.POST("", h.invoices.Create)
	invoices.PUT("/:id", h.invoices.Update)
	invoices.DELETE("/:id", admin, h.invoices.Delete)

	payments := protected.Group("/payments", staff, audited("payments"))
	payments.GET("", h.payments.List)
	payments.GET("/:id", h.payments.Get)
	payments.POST("", h.payments.Create)
	payments.PUT("/:id", h.payments.Update)
	payments.DELETE("/:id", admin, h.payments.Delete)

	grades := protected.Group("/grades", staff, audited("grades"))
	grades.GET("", h.grades.List)
	grades.GET("/:id", h.grades.Get)
	grades.POST("", h.grades.Create)
	grades.PUT("/:id", h.grades.Update)
	grades.DELETE("/:id", h.grades.Delete)

	attendances := protected.Group("/attendances", staff, audited("attendances"))
	attendances.GET("", h.attendance.List)
	attendances.GET("/:id", h.attendance.Get)
	attendances.POST("", h.attendance.Create)
	attendances.POST("/bulk", h.attendance.BulkCreate)
	attendances.PUT("/:id", h.attendance.Update)
	attendances.DELETE("/:id", h.attendance.Delete)

	certificates := protected.Group("/certificates", admin, audited("certificates"))
	certificates.GET("", h.certificates.List)
	certificates.GET("/:id", h.certificates.Get)
	certificates.GET("/:id/pdf", h.certificates.PDF)
	certificates.POST("", h.certificates.Issue)
	certificates.POST("/:id/revoke", h.certificates.Revoke)

	announcements := protected.Group("/announcements", staff, audited("announcements"))
	announcements.GET("", h.announcements.List)
	announcements.GET("/:id", h.announcements.Get)
	announcements.POST("", h.announcements.Create)
	announcements.PUT("/:id", h.announcements.Update)
	announcements.DELETE("/:id", h.announcements.Delete)

	financeGroup := protected.Group("/finance", admin)
	financeGroup.GET("/overview", h.finance.Overview)
	financeGroup.GET("/overview/export", h.finance.Export)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("/admin", admin, h.dashboard.Admin)
	dashboard.GET("/secretary", staff, h.dashboard.Secretary)

	protected.GET("/settings", staff, h.settings.List)
	protected.PUT("/settings", admin, h.settings.BulkUpdate)

	auditLogs := protected.Group("/audit-logs", admin)
	auditLogs.GET("", h.audit.List)
	auditLogs.GET("/export", h.audit.Export)

	protected.GET("/backup/export", admin, h.backups.Export)
	protected.POST("/backup/import", admin, h.backups.Import)
	backups := protected.Group("/backups", admin)
	backups.GET("", h.backups.List)
	backups.POST("/run", h.backups.Run)

	protected.GET("/metrics/summary", admin, h.metrics.Summary)
}
