package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/modrelay/backend/internal/config"
	"github.com/modrelay/backend/internal/db"
	"github.com/modrelay/backend/internal/discord"
	"github.com/modrelay/backend/internal/events"
	apphttp "github.com/modrelay/backend/internal/http"
	"github.com/modrelay/backend/internal/http/dto"
	"github.com/modrelay/backend/internal/http/handlers"
	"github.com/modrelay/backend/internal/policy"
	"github.com/modrelay/backend/internal/repositories"
	"github.com/modrelay/backend/internal/services"
	"github.com/modrelay/backend/migrations"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	auditRepo := repositories.NewAuditRepo(pool)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to ensure audit schema", zap.Error(err))
	}

	// Redis (optional)
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	var (
		publisher  events.Publisher = events.NopPublisher{}
		subscriber events.Subscriber
	)
	if rdb != nil {
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	}

	// Discord
	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		log.Fatal("failed to create discord session", zap.Error(err))
	}
	gateway := discord.NewGateway(session, log)

	// Services
	evaluator := policy.NewEvaluator(cfg.Policy())
	executor := services.NewExecutor(gateway)
	notifier := services.NewNotifier(gateway, cfg.ModLogChannel, publisher, log)
	pipeline := services.NewPipeline(evaluator, executor, auditRepo, notifier, log)
	dashboard := services.NewDashboardService(auditRepo, gateway)

	bot := discord.NewBot(session, gateway, pipeline, log)

	// Handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboard, log)
	wsHub := handlers.NewWSHub(subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Error("failed to start ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})
	apphttp.SetupRouter(app, cfg, log, rdb, dashboardHandler, wsHub)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(gctx)
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting dashboard", zap.String("addr", addr))
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error("exited with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("stopped")
}
