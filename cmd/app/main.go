package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"giveaway-miniapp/docs"
	"giveaway-miniapp/internal/common/config"
	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/common/middleware"
	catalogRepo "giveaway-miniapp/internal/features/catalog/repository"
	catalogMemory "giveaway-miniapp/internal/features/catalog/repository/memory"
	catalogRedis "giveaway-miniapp/internal/features/catalog/repository/redis"
	catalogService "giveaway-miniapp/internal/features/catalog/service"
	"giveaway-miniapp/internal/features/events"
	"giveaway-miniapp/internal/features/events/sinks"
	"giveaway-miniapp/internal/features/ledger/repository"
	ledgerMemory "giveaway-miniapp/internal/features/ledger/repository/memory"
	ledgerRedis "giveaway-miniapp/internal/features/ledger/repository/redis"
	"giveaway-miniapp/internal/features/outbox"
	participationHTTP "giveaway-miniapp/internal/features/participation/delivery/http"
	participationService "giveaway-miniapp/internal/features/participation/service"
	"giveaway-miniapp/internal/features/participation/session"
	userService "giveaway-miniapp/internal/features/user/service"
	"giveaway-miniapp/internal/platform/redis"
)

const serviceName = "giveaway-miniapp"

// @title           Giveaway Mini App API
// @version         1.0
// @description     Backend for the Telegram giveaway mini-app: catalog, task verification, joins and ticket ledger.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data string

// @tag.name users
// @tag.description Current user profile

// @tag.name giveaways
// @tag.description Giveaway catalog

// @tag.name participation
// @tag.description Task verification, eligibility and joining

// @tag.name admin
// @tag.description Catalog management, entries and outbox

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Debug)
	logger.Info().
		Str("version", "1.0.0").
		Bool("debug", cfg.Debug).
		Str("ledger_backend", cfg.Ledger.Backend).
		Strs("task_kinds", cfg.Tasks.Kinds).
		Msg("Starting giveaway mini-app backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилища: Redis или память процесса
	var (
		rdb      *redis.Client
		ledger   repository.Ledger
		catalogs catalogRepo.CatalogRepository
		sinkList []events.Sink
	)
	switch cfg.Ledger.Backend {
	case config.LedgerBackendMemory:
		ledger = ledgerMemory.NewLedger()
		catalogs = catalogMemory.NewRepository()
		logger.Warn().Msg("Using in-memory ledger, data is lost on restart")
	default:
		rdb, err = redis.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		logger.Info().Str("addr", cfg.RedisAddr()).Msg("Redis connection established")

		ledger = ledgerRedis.NewRedisLedger(rdb)
		catalogs = catalogRedis.NewRedisCatalogRepository(rdb)
		sinkList = append(sinkList, sinks.NewRedisStream(rdb, cfg.Events.StreamKey, cfg.Events.StreamMaxLen))
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaClient, err := sinks.NewKafkaClient(cfg.Events.KafkaBrokers)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Kafka client")
		}
		defer kafkaClient.Close()

		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sinks.EnsureTopic(topicCtx, kafkaClient, cfg.Events.KafkaTopic, 3, 1); err != nil {
			logger.Warn().Err(err).Str("topic", cfg.Events.KafkaTopic).Msg("Failed to ensure Kafka topic")
		}
		cancel()
		sinkList = append(sinkList, sinks.NewKafka(kafkaClient, cfg.Events.KafkaTopic))
		logger.Info().Strs("brokers", cfg.Events.KafkaBrokers).Str("topic", cfg.Events.KafkaTopic).Msg("Kafka event sink enabled")
	}

	bus := events.NewBus(sinkList...)

	store, err := outbox.Open(cfg.Outbox.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Outbox.Path).Msg("Failed to open outbox")
	}
	defer store.Close()

	// Сервисы
	catalogSvc := catalogService.NewCatalogService(catalogs)
	profileSvc := userService.NewProfileService(ledger)
	coordinator := participationService.NewCoordinator(ledger, catalogSvc, bus,
		participationService.WithOutbox(store),
		participationService.WithRetryPolicy(participationService.RetryPolicy{
			Attempts: cfg.Ledger.RetryAttempts,
			Delay:    cfg.Ledger.RetryDelay,
			Timeout:  cfg.Ledger.Timeout,
		}),
	)
	registry := session.NewRegistry(profileSvc, bus, session.Config{
		TaskKinds:         cfg.Tasks.Kinds,
		VerificationDelay: cfg.Tasks.VerificationDelay,
		IdleTTL:           cfg.Sessions.IdleTTL,
	})
	defer registry.Close()
	replayer := outbox.NewReplayer(store, ledger, cfg.Outbox.Interval, cfg.Outbox.MaxAttempts, cfg.Ledger.Timeout)

	logger.Info().Msg("Services initialized")

	// Фоновые воркеры
	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		bus.Run,
		replayer.Start,
		func(ctx context.Context) { registry.Start(ctx, cfg.Sessions.SweepInterval) },
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(workersCtx)
		}(run)
	}

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := participationHTTP.RegisterValidators(cfg.Tasks.Kinds); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register validators")
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Errors())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.HeaderInitData, middleware.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	allowFallback := cfg.Debug && cfg.Telegram.BotToken == ""
	if allowFallback {
		logger.Warn().Msg("BOT_TOKEN is empty, requests without init data use the fallback identity")
	}

	v1 := router.Group("/api/v1",
		middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, allowFallback),
		middleware.LoadSession(registry),
	)
	handler := participationHTTP.NewParticipationHandler(coordinator, catalogSvc, ledger, bus, store, participationHTTP.Config{
		BotUsername: cfg.Telegram.BotUsername,
		IsAdmin:     cfg.IsAdmin,
	})
	handler.RegisterRoutes(v1)

	setupProbes(router, rdb, store)

	docs.SwaggerInfo.Host = ""
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info().Msg("Routes configured")

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout не ставим: /events держит соединение открытым
		IdleTimeout: 60 * time.Second,
		// запросы наследуют сигнальный контекст, иначе Shutdown ждёт открытые /events
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorkers()
	wg.Wait()

	logger.Info().Msg("Server exited")
}

func setupProbes(router *gin.Engine, rdb *redis.Client, store *outbox.Store) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if rdb != nil {
			if err := rdb.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		pending, err := store.Pending(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "outbox unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ready",
			"timestamp":      time.Now().UTC(),
			"service":        serviceName,
			"outbox_pending": pending,
		})
	})
}
