package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/vehicle-api/internal/config"
	"github.com/yourusername/vehicle-api/internal/handler"
	"github.com/yourusername/vehicle-api/internal/middleware"
	"github.com/yourusername/vehicle-api/internal/policy"
	pgRepo "github.com/yourusername/vehicle-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/vehicle-api/internal/repository/redis"
	"github.com/yourusername/vehicle-api/internal/service"
	ws "github.com/yourusername/vehicle-api/internal/websocket"
	"github.com/yourusername/vehicle-api/pkg/auth"
	"github.com/yourusername/vehicle-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), database.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, os.Getenv("MIGRATIONS_SOURCE")); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Println("Successfully connected to Redis")

	// Репозитории
	userRepo := pgRepo.NewUserRepo(db)
	vehicleRepo := pgRepo.NewVehicleRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}
	pendingRepo, err := redisRepo.NewPendingVerificationRepo(redisClient, cfg.Verification.CodeTTL)
	if err != nil {
		log.Printf("Failed to initialize PendingVerificationRepo: %v", err)
		os.Exit(1)
	}
	sessionRepo, err := redisRepo.NewSessionRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize SessionRepo: %v", err)
		os.Exit(1)
	}

	// Сессии
	sessions, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL(), sessionRepo)
	if err != nil {
		log.Printf("Failed to initialize SessionManager: %v", err)
		os.Exit(1)
	}
	isProduction := gin.Mode() == gin.ReleaseMode
	sessions.SetCookieSecure(cfg.Session.CookieSecure || isProduction)

	// Отправка писем
	var notifier service.Notifier = &service.NoopNotifier{}
	if cfg.Email.Provider == "resend" {
		resendNotifier, err := service.NewResendNotifier(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize Resend notifier: %v", err)
			os.Exit(1)
		}
		notifier = resendNotifier
	}

	// Контекст жизненного цикла фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Лента изменений записей
	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	if cfg.WebSocket.ClusterEnabled {
		redisProvider, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			log.Printf("Ошибка при создании Redis PubSub провайдера: %v. Кластеризация ленты будет неактивна.", err)
		} else {
			log.Println("Redis PubSub провайдер успешно инициализирован")
			pubSubProvider = redisProvider
		}
	}
	feed := ws.NewVehicleFeed(ws.NewHub(), pubSubProvider, cfg.WebSocket.Channel)
	if err := feed.Start(ctx); err != nil {
		log.Printf("Failed to start vehicle feed: %v", err)
		os.Exit(1)
	}

	// Сервисы
	registrationService, err := service.NewRegistrationService(userRepo, pendingRepo, cacheRepo, notifier,
		cfg.Verification.CodeTTL, cfg.Verification.ResendCooldown)
	if err != nil {
		log.Printf("Failed to initialize RegistrationService: %v", err)
		os.Exit(1)
	}
	verificationService, err := service.NewVerificationService(userRepo, pendingRepo, cacheRepo, notifier,
		cfg.Verification.CodeTTL, cfg.Verification.ResendCooldown)
	if err != nil {
		log.Printf("Failed to initialize VerificationService: %v", err)
		os.Exit(1)
	}
	authService, err := service.NewAuthService(userRepo, sessions)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}
	vehicleService, err := service.NewVehicleService(vehicleRepo, feed)
	if err != nil {
		log.Printf("Failed to initialize VehicleService: %v", err)
		os.Exit(1)
	}

	// Обработчики и middleware
	authHandler := handler.NewAuthHandler(registrationService, verificationService, authService, sessions)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	wsHandler := handler.NewWSHandler(feed, cfg.CORS.AllowedOrigins)
	authMiddleware := middleware.NewAuthMiddleware(sessions, middleware.DefaultLoginURL)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": feed.Hub().ClientCount()})
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Limit(middleware.RegisterRateLimitConfig()), authHandler.Register)
			authGroup.POST("/verify/:username", rateLimiter.Limit(middleware.VerifyRateLimitConfig()), authHandler.Verify)
			authGroup.POST("/verify/:username/resend", rateLimiter.Limit(middleware.VerifyRateLimitConfig()), authHandler.ResendCode)
			authGroup.POST("/login", rateLimiter.Limit(middleware.LoginRateLimitConfig()), authHandler.Login)
			authGroup.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)
		}

		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", authHandler.GetMe)
		}

		vehicles := api.Group("/vehicles")
		vehicles.Use(authMiddleware.RequireAuth())
		{
			vehicles.GET("", authMiddleware.RequirePermission(policy.OpList), vehicleHandler.ListVehicles)
			vehicles.GET("/export", authMiddleware.RequirePermission(policy.OpList), vehicleHandler.ExportVehicles)
			vehicles.POST("", authMiddleware.RequirePermission(policy.OpCreate), vehicleHandler.CreateVehicle)

			vehicleWithID := vehicles.Group("/:id")
			vehicleWithID.Use(middleware.ExtractUintParam("id", handler.ContextVehicleID))
			{
				vehicleWithID.GET("", authMiddleware.RequirePermission(policy.OpView), vehicleHandler.GetVehicle)
				vehicleWithID.PUT("", authMiddleware.RequirePermission(policy.OpUpdate), vehicleHandler.UpdateVehicle)
				vehicleWithID.DELETE("", authMiddleware.RequirePermission(policy.OpDelete), vehicleHandler.DeleteVehicle)
			}
		}
	}

	// WebSocket маршрут ленты изменений
	router.GET("/ws/vehicles", authMiddleware.RequireAuth(), authMiddleware.RequirePermission(policy.OpList), wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем подписку ленты и фоновые горутины
	cancel()
	if err := pubSubProvider.Close(); err != nil {
		log.Printf("Error closing PubSub provider: %v", err)
	}
	feed.Hub().Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
