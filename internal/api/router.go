package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bolle-sn/citizen-relay/internal/api/handler"
	"github.com/bolle-sn/citizen-relay/internal/api/middleware"
	"github.com/bolle-sn/citizen-relay/internal/core/service"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/config"
	mongodb "github.com/bolle-sn/citizen-relay/internal/infrastructure/db/mongo"
	redisdb "github.com/bolle-sn/citizen-relay/internal/infrastructure/db/redis"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/forwarder"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/mail"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/media"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/storage"
)

// NewRouter builds the Echo instance with every dependency wired and every
// route registered.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, log zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("bolle"))

	// --- Repositories ---
	userRepo := mongodb.NewUserRepository(db)
	alertRepo := mongodb.NewAlertRepository(db)
	agencyRepo := mongodb.NewAgencyRepository(db)
	denylist := redisdb.NewTokenDenylist(rdb)

	// --- Infrastructure ---
	agencyForwarder := forwarder.NewHTTPForwarder(cfg.PrimaryServiceKey(), cfg.HygieneImportAPIKey, log)
	mailer := mail.NewMailer(mail.Config{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	}, log)
	sms := mail.NewSMSSender(log)

	mediaStore, err := storage.NewCloudinaryStorage(storage.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	}, log)
	if err != nil {
		return nil, err
	}
	frames := media.NewFFmpegExtractor(log)

	// --- Services ---
	tokenService := service.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, tokenService, mailer, sms, cfg.FrontendURL, log)
	alertService := service.NewAlertService(alertRepo, agencyRepo, agencyForwarder, log)
	registryService := service.NewRegistryService(agencyRepo, agencyForwarder, service.DefaultAgencies(
		cfg.Agencies.HygieneURL,
		cfg.Agencies.PoliceURL,
		cfg.Agencies.DouaneURL,
		cfg.Agencies.GendarmerieURL,
	), log)
	uploadService, err := service.NewUploadService(mediaStore, frames, cfg.UploadDir, log)
	if err != nil {
		return nil, err
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService, tokenService, denylist, log)
	alertHandler := handler.NewAlertHandler(alertService, uploadService)
	serviceHandler := handler.NewServiceHandler(registryService, !cfg.IsProduction())
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	authRequired := middleware.Auth(tokenService, denylist, log)
	serviceKey := middleware.ServiceKey(cfg.ServiceAPIKeys)

	// --- Public routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.POST("/login-anonymous", authHandler.LoginAnonymous)
	e.POST("/verify-token", authHandler.VerifyToken)
	e.POST("/verify-account", authHandler.VerifyAccount)
	e.POST("/resend-verification-codes", authHandler.ResendVerificationCodes)
	e.POST("/forgot-password", authHandler.ForgotPassword)
	e.POST("/reset-password", authHandler.ResetPassword)

	e.GET("/services", serviceHandler.List)
	e.GET("/services/:id", serviceHandler.Get)
	e.GET("/services/:id/categories", serviceHandler.Categories)
	e.GET("/services/:id/availability", serviceHandler.Availability)
	e.POST("/services/initialize", serviceHandler.Initialize, authRequired)

	// --- Account routes ---
	e.GET("/profile", authHandler.Profile, authRequired)
	e.PUT("/profile", authHandler.UpdateProfile, authRequired)
	// Kept for frontend compatibility.
	e.POST("/update-profile", authHandler.UpdateProfile, authRequired)
	e.POST("/change-password", authHandler.ChangePassword, authRequired)
	e.POST("/logout", authHandler.Logout, authRequired)

	// --- Alert routes ---
	alerts := e.Group("/alerts")
	alerts.POST("/webhook/status", alertHandler.WebhookStatus, serviceKey)
	alerts.POST("/webhook/comments", alertHandler.WebhookComment, serviceKey)

	alerts.POST("", alertHandler.Create, authRequired)
	alerts.GET("/me", alertHandler.ListMine, authRequired)
	alerts.GET("/nearby", alertHandler.Nearby, authRequired)
	alerts.GET("/:id", alertHandler.Get, authRequired)
	alerts.POST("/:id/comments", alertHandler.AddComment, authRequired)
	alerts.POST("/upload", alertHandler.UploadSingle, authRequired)
	alerts.POST("/uploads", alertHandler.UploadMultiple, authRequired)
	alerts.DELETE("/upload", alertHandler.DeleteUpload, authRequired)

	// --- Agency-facing routes ---
	e.GET("/external/alerts/hygiene", alertHandler.HygieneAlerts, serviceKey)

	// --- Health, metrics and static media ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.Static("/uploads", cfg.UploadDir)

	return e, nil
}
