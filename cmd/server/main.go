package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusdirectory/facility-api/internal/config"
	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/handlers"
	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/campusdirectory/facility-api/pkg/jwt"
	"github.com/campusdirectory/facility-api/pkg/mail"
	"github.com/campusdirectory/facility-api/pkg/storage"
	"github.com/campusdirectory/facility-api/pkg/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Campus Facility Directory API")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validator.RegisterRules(); err != nil {
		logger.Fatalf("Failed to register validation rules: %v", err)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("Database connection established")

	// Blob store for photos
	store, err := storage.New(context.Background(), cfg.Upload)
	if err != nil {
		logger.Fatalf("Failed to initialize photo storage: %v", err)
	}
	logger.WithField("driver", store.Name()).Info("Photo storage ready")

	// Redis is optional; without it the global limiter lets everything through
	redisClient := connectRedis(cfg.RateLimit.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var mailer mail.Gateway
	if cfg.Email.Mode == "production" {
		mailer = mail.NewSendGridGateway(mail.SendGridConfig{
			APIKey:    cfg.Email.SendGridKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
	} else {
		mailer = mail.NewLogGateway(logger)
	}
	logger.WithField("gateway", mailer.GetName()).Info("Email gateway ready")

	// Repositories
	userRepository := database.NewUserRepository(db)
	facilityRepository := database.NewFacilityRepository(db)
	roomRepository := database.NewRoomRepository(db)
	reviewRepository := database.NewReviewRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	photoService := services.NewPhotoService(store, services.PhotoLimits{
		MaxFileSize: cfg.Upload.MaxFileSize,
		MaxPhotos: map[services.PhotoKind]int{
			services.PhotoKindFacility: cfg.Upload.MaxFacilityPhotos,
			services.PhotoKindRoom:     cfg.Upload.MaxRoomPhotos,
		},
	}, logger)
	ratingService := services.NewRatingService(reviewRepository, facilityRepository, logger)
	facilityService := services.NewFacilityService(facilityRepository, roomRepository, photoService, logger)
	roomService := services.NewRoomService(roomRepository, facilityRepository, photoService, logger)
	reviewService := services.NewReviewService(reviewRepository, facilityRepository, userRepository, ratingService, logger)
	authService := services.NewAuthService(userRepository, jwtService, mailer, services.AuthConfig{
		BcryptCost:   cfg.Security.BcryptCost,
		ResetURLBase: cfg.Email.ResetURLBase,
	}, logger)
	rateLimitService := services.NewRateLimitService(db, services.RateLimitConfig{
		MaxEmailRequests: cfg.RateLimit.ResetLimit,
		EmailWindow:      time.Duration(cfg.RateLimit.ResetWindowMinutes) * time.Minute,
		MaxIPRequests:    cfg.RateLimit.ResetLimit * 3,
		IPWindow:         time.Hour,
	})

	var auditService *services.AuditService
	if cfg.Security.EnableAuditLog {
		auditService = services.NewAuditService(db)
	}

	cronService := services.NewCronService(ratingService, userRepository, rateLimitService, services.NewAuditService(db), logger)
	if cfg.Cron.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, rateLimitService, auditService, handlers.CookieConfig{
		ExpireDays: cfg.JWT.CookieExpireDays,
		Secure:     cfg.Server.IsProduction(),
	}, logger)
	facilityHandler := handlers.NewFacilityHandler(facilityService, auditService, logger)
	roomHandler := handlers.NewRoomHandler(roomService, auditService, logger)
	reviewHandler := handlers.NewReviewHandler(reviewService, auditService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	if cfg.Upload.StorageDriver == "local" {
		router.Static("/uploads", cfg.Upload.Path)
	}

	authRequired := middleware.AuthMiddleware(jwtService, logger)
	publishers := middleware.RequireRole(models.RolePublisher, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(redisClient, middleware.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}, logger))
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/logout", middleware.OptionalAuth(jwtService), authHandler.Logout)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.PUT("/updatedetails", authRequired, authHandler.UpdateDetails)
			auth.PUT("/updatepassword", authRequired, authHandler.UpdatePassword)
			auth.POST("/forgotpassword", authHandler.ForgotPassword)
			auth.PUT("/resetpassword/:resettoken", authHandler.ResetPassword)
		}

		facilities := v1.Group("/facilities")
		{
			facilities.GET("", facilityHandler.List)
			facilities.POST("", authRequired, publishers, facilityHandler.Create)
			facilities.GET("/:id", facilityHandler.Get)
			facilities.PUT("/:id", authRequired, publishers, facilityHandler.Update)
			facilities.DELETE("/:id", authRequired, publishers, facilityHandler.Delete)
			facilities.PUT("/:id/photos", authRequired, publishers, facilityHandler.UploadPhotos)
			facilities.PUT("/:id/photos/:photoname", authRequired, publishers, facilityHandler.DeletePhoto)

			facilities.GET("/:id/rooms", roomHandler.List)
			facilities.POST("/:id/rooms", authRequired, publishers, roomHandler.Create)
			facilities.GET("/:id/reviews", reviewHandler.List)
			facilities.POST("/:id/reviews", authRequired, reviewHandler.Create)
		}

		rooms := v1.Group("/rooms")
		{
			rooms.GET("", roomHandler.List)
			rooms.GET("/:id", roomHandler.Get)
			rooms.PUT("/:id", authRequired, publishers, roomHandler.Update)
			rooms.DELETE("/:id", authRequired, publishers, roomHandler.Delete)
			rooms.PUT("/:id/photos", authRequired, publishers, roomHandler.UploadPhotos)
			rooms.PUT("/:id/photos/:photoname", authRequired, publishers, roomHandler.DeletePhoto)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("", reviewHandler.List)
			reviews.GET("/:id", reviewHandler.Get)
			reviews.PUT("/:id", authRequired, reviewHandler.Update)
			reviews.DELETE("/:id", authRequired, reviewHandler.Delete)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cfg.Cron.Enabled {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// connectRedis returns nil when url is empty or Redis cannot be reached
func connectRedis(url string, logger *logrus.Logger) *redis.Client {
	if url == "" {
		logger.Warn("REDIS_URL not set, global rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Warn("Invalid REDIS_URL, global rate limiting disabled")
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, rate limiter will fail open")
	} else {
		logger.Info("Redis connection established")
	}
	return client
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
