package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lulius2021/alarmbriefing-server-go/internal/audit"
	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/handler"
	"github.com/lulius2021/alarmbriefing-server-go/internal/jobs"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/middleware"
	"github.com/lulius2021/alarmbriefing-server-go/internal/redis"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	userRepo := repository.NewUserRepository(db.DB)
	pairingRepo := repository.NewPairingRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	alarmRepo := repository.NewAlarmRepository(db.DB)
	briefingRepo := repository.NewBriefingRepository(db.DB)
	settingsRepo := repository.NewSettingsRepository(db.DB)

	auditQueue := audit.NewStreamQueue(redisClient.Client, cfg.AuditStreamKey, config.AuditConsumerGroup, consumerName())
	recorder := audit.NewRecorder(auditQueue, auditRepo, m)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL())
	pairingService := service.NewPairingService(db, pairingRepo, recorder, m)
	credentialService := service.NewCredentialService(pairingRepo)
	auditService := service.NewAuditService(auditRepo)
	alarmService := service.NewAlarmService(alarmRepo)
	briefingService := service.NewBriefingService(briefingRepo, alarmRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	userAuth := middleware.NewUserAuth(authService)
	botGateway := middleware.NewBotGateway(credentialService, recorder, m)
	claimLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, cfg.ClaimRateLimitPerMin, time.Minute, "claim")

	router := handler.NewRouter(handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Pairing:   handler.NewPairingHandler(pairingService),
		Audit:     handler.NewAuditHandler(auditService, broker),
		Alarms:    handler.NewAlarmHandler(alarmService),
		Briefings: handler.NewBriefingHandler(briefingService),
		Settings:  handler.NewSettingsHandler(settingsService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": db.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}),

		UserAuth:   userAuth.Handler,
		BotGateway: botGateway.Handler,
		ClaimLimit: claimLimit.Handler,
		Authorizer: service.NewScopeAuthorizer(),
		Metrics:    m,

		CORSOrigins:         cfg.CORSAllowedOrigins,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
		IsProduction:        cfg.IsProduction(),
	})

	cleanupJob := jobs.NewCleanupJob(pairingRepo, config.CleanupJobInterval)
	flushJob := jobs.NewAuditFlushJob(
		auditQueue, auditRepo, broker, m,
		cfg.AuditFlushBatch, config.AuditFlushInterval, config.AuditReclaimIdle,
	)
	retentionJob := jobs.NewRetentionJob(auditRepo, cfg.AuditRetention(), cfg.AuditRetentionSchedule)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Int("streams", broker.TotalClients()).Msg("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer shutdownCancel()

		// Open event streams never finish on their own.
		broker.Close()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return cleanupJob.Run(gctx) })
	g.Go(func() error { return flushJob.Run(gctx) })
	g.Go(func() error { return retentionJob.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}

	log.Info().Msg("server stopped")
}

// consumerName identifies this instance in the audit consumer group.
func consumerName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
