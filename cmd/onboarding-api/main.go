package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/harborfin/onboarding-api/api/swagger"
	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/handler"
	"github.com/harborfin/onboarding-api/internal/middleware"
	"github.com/harborfin/onboarding-api/internal/models"
	"github.com/harborfin/onboarding-api/internal/repository"
	"github.com/harborfin/onboarding-api/internal/service"
	"github.com/harborfin/onboarding-api/pkg/cache"
	"github.com/harborfin/onboarding-api/pkg/config"
	"github.com/harborfin/onboarding-api/pkg/database"
	"github.com/harborfin/onboarding-api/pkg/jobs"
	"github.com/harborfin/onboarding-api/pkg/logger"
	corsmiddleware "github.com/harborfin/onboarding-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harborfin/onboarding-api/pkg/middleware/requestid"
	"github.com/harborfin/onboarding-api/pkg/storage"
)

// @title Client Onboarding API
// @version 1.0.0
// @description Client onboarding backend syncing questions, templates and answer files into the remote document store
// @BasePath /api/v1
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, token caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	var tokens drive.TokenProvider = drive.NewClientCredentialsProvider(drive.ClientCredentialsConfig{
		TokenURL:     cfg.Drive.TokenURL,
		ClientID:     cfg.Drive.ClientID,
		ClientSecret: cfg.Drive.ClientSecret,
		Scope:        cfg.Drive.Scope,
	}, nil)
	if cfg.Drive.TokenCacheEnabled && redisClient != nil {
		tokens = drive.NewCachedTokenProvider(tokens, redisClient, logr)
	}

	retryer := drive.NewRetryer(cfg.Drive.MaxAttempts, cfg.Drive.RetryBaseDelay, logr)
	driveClient := drive.NewClient(drive.Config{
		BaseURL:         cfg.Drive.BaseURL,
		RootFolder:      cfg.Drive.RootFolder,
		ChunkSize:       cfg.Drive.ChunkSize,
		SmallFileLimit:  cfg.Drive.SmallFileLimit,
		DownloadTimeout: cfg.Drive.DownloadTimeout,
	}, tokens, retryer, nil, logr, metrics)

	validate := validator.New()

	clientRepo := repository.NewClientRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	userRepo := repository.NewUserRepository(db)

	folderSvc := service.NewFolderService(driveClient, logr, service.FolderServiceConfig{
		PreserveAnswersOnRename: cfg.Drive.PreserveAnswersOnRename,
	})
	uploadSvc := service.NewUploadService(driveClient, folderSvc, questionRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanupQueue := jobs.NewQueue("tree-cleanup", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(service.TreeCleanupPayload)
		if !ok {
			logr.Warn("cleanup job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return folderSvc.DeleteClientTree(ctx, payload.LoginKey, payload.ClientName)
	}, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logr,
	})
	cleanupQueue.Start(rootCtx)
	defer cleanupQueue.Stop()

	clientSvc := service.NewClientService(clientRepo, questionRepo, folderSvc, cleanupQueue, validate, logr)
	questionSvc := service.NewQuestionService(questionRepo, clientRepo, folderSvc, validate, logr)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(clientRepo, questionSvc, reportStore, signer, service.ReportServiceConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		reportSvc.StartCleanup(rootCtx, cfg.Reports.CleanupInterval)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	questionHandler := handler.NewQuestionHandler(questionSvc)
	documentHandler := handler.NewDocumentHandler(uploadSvc, clientSvc, questionSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		staff.GET("/auth/me", authHandler.Me)

		staff.GET("/clients", clientHandler.List)
		staff.POST("/clients", clientHandler.Create)
		staff.GET("/clients/:loginKey", clientHandler.Get)
		staff.PATCH("/clients/:loginKey", clientHandler.Update)
		staff.DELETE("/clients/:loginKey", clientHandler.Delete)

		staff.GET("/clients/:loginKey/questions", questionHandler.List)
		staff.POST("/clients/:loginKey/questions", questionHandler.Create)
		staff.PUT("/clients/:loginKey/questions", questionHandler.Replace)
		staff.PUT("/clients/:loginKey/questions/:id", questionHandler.Update)
		staff.DELETE("/clients/:loginKey/questions/:id", questionHandler.Delete)

		staff.POST("/clients/:loginKey/questions/:id/templates", documentHandler.UploadTemplates)
		staff.GET("/files/:fileId", documentHandler.Download)

		if reportSvc != nil {
			reportHandler := handler.NewReportHandler(reportSvc)
			staff.POST("/clients/:loginKey/reports", reportHandler.Generate)
			// Download stays outside JWT below; the signed token is the credential.
			api.GET("/reports/:id/download", reportHandler.Download)
		}
	}

	// Portal routes: clients authenticate with their loginKey alone.
	portal := api.Group("/portal/:loginKey")
	{
		portal.GET("/questions", documentHandler.PortalQuestions)
		portal.POST("/questions/:id/answers", documentHandler.UploadAnswer)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
