package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-challenges/config"
	"community-challenges/handlers"
	"community-challenges/middleware"
	"community-challenges/services"
	"community-challenges/utils"
	"community-challenges/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	config.SetupLogging(cfg.LogLevel, cfg.Pretty())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialector := postgres.Open(cfg.DatabaseURL)
	if cfg.UsesSQLite() {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	repo := services.NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	clock := clockwork.NewRealClock()

	// --- Events: in-process hub for SSE, optionally mirrored to redis ---
	hub := services.NewHub()
	publishers := services.MultiPublisher{hub}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("⚠️  Redis unreachable, events stay in-process")
		} else {
			publishers = append(publishers, services.NewRedisPublisher(rdb))
			log.Info().Str("addr", cfg.RedisAddr).Msg("✅ Redis event publisher enabled")
		}
		defer rdb.Close()
	}

	var gateway services.PayoutGateway = services.LoggingPayoutGateway{}
	if cfg.PayoutServiceURL != "" {
		gateway = services.NewHTTPPayoutGateway(cfg.PayoutServiceURL, cfg.ServiceToken)
	}

	var archive services.ReportArchiver
	r2cfg := utils.R2Config{
		AccountID:       cfg.CloudflareAccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2BucketName,
	}
	if r2cfg.Enabled() {
		r2, err := utils.NewR2ReportArchive(ctx, r2cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		archive = r2
	} else {
		log.Warn().Msg("⚠️  R2 not configured, challenge reports will not be archived")
	}

	store := services.NewStore(repo)
	analytics := services.NewAnalyticsAggregator(repo, clock)
	prizes := services.NewPrizeDistributor(repo, gateway, publishers, clock)

	scheduler, err := services.NewPhaseScheduler(store, clock, cfg.SweepInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create phase scheduler")
	}

	engine := services.NewEngine(services.EngineDeps{
		Store:     store,
		Analytics: analytics,
		Prizes:    prizes,
		Scheduler: scheduler,
		Events:    publishers,
		Archive:   archive,
		Profiles:  repo,
		Clock:     clock,
	})
	if err := engine.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore challenge state")
	}

	if err := scheduler.Start(ctx, engine); err != nil {
		log.Fatal().Err(err).Msg("failed to start phase scheduler")
	}
	if err := scheduler.Rearm(ctx); err != nil {
		log.Error().Err(err).Msg("❌ failed to re-arm phase transitions, sweep will catch up")
	}

	go workers.PollPayouts(ctx, clock, prizes, cfg.PayoutInterval)

	if cfg.ProfileServiceURL != "" {
		workers.NewProfileSyncWorker(db, cfg.ProfileServiceURL, "/api/v1/public/profiles", cfg.ServiceToken, cfg.ProfileSyncEvery).Start(ctx)
	} else {
		log.Warn().Msg("⚠️  PROFILE_SERVICE_URL not set, joins use request-supplied profiles")
	}

	voteLimiter := middleware.NewPerMinuteLimiter(cfg.VoteRatePerMinute)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				voteLimiter.Cleanup(30 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	app := fiber.New()

	// Scraped directly, not through the gateway
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// 🔐❗ Only Gateway requests allowed past this point
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	handlers.SetupChallengeRoutes(app, handlers.NewChallengeHandler(engine, hub), voteLimiter)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	log.Info().Msgf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Info().Msgf("✅ Phase scheduler sweeping every %s", cfg.SweepInterval)
	log.Info().Msgf("✅ Prize payout worker running (every %s)", cfg.PayoutInterval)
	log.Info().Msgf("✅ CORS configured for origins: %s", cfg.Origins())

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
}
