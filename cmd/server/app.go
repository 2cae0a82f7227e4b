package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taskboard/taskboard-api/internal/api"
	apimiddleware "github.com/taskboard/taskboard-api/internal/api/middleware"
	"github.com/taskboard/taskboard-api/internal/config"
	"github.com/taskboard/taskboard-api/internal/events"
	"github.com/taskboard/taskboard-api/internal/jobs"
	"github.com/taskboard/taskboard-api/internal/platform/postgres"
	"github.com/taskboard/taskboard-api/internal/platform/redis"
	"github.com/taskboard/taskboard-api/internal/queue"
	"github.com/taskboard/taskboard-api/internal/service"
	"github.com/taskboard/taskboard-api/internal/service/auth"
)

// migrationsDir is resolved relative to the working directory.
const migrationsDir = "migrations"

// application bundles every long-lived dependency of the server so the
// router and the shutdown path can reach them.
type application struct {
	config *config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *goredis.Client
	bus   *redis.RedisBus
	queue *queue.Runner

	taskHandler         *api.TaskHandler
	notificationHandler *api.NotificationHandler
	authHandler         *api.AuthHandler
	authMiddleware      *apimiddleware.AuthMiddleware
	authRateLimiter     *redis.FixedWindowLimiter
	apiRateLimiter      *redis.FixedWindowLimiter
}

// newApplication wires the full dependency graph: database, redis, queue,
// bus, stores, services, and handlers. The queue runner is started before
// returning so handlers can enqueue immediately.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db)
	assignmentStore := postgres.NewPostgresAssignmentStore(db)
	historyStore := postgres.NewPostgresHistoryStore(db)
	commentStore := postgres.NewPostgresCommentStore(db)
	notificationStore := postgres.NewPostgresNotificationStore(db)
	userStore := postgres.NewPostgresUserStore(db)

	taskCache := redis.NewRedisCache(redisClient)
	tokenStore := redis.NewRedisTokenStore(redisClient)
	eventBus := redis.NewRedisBus(redisClient, logger)
	authRateLimiter := redis.NewFixedWindowLimiter(redisClient,
		redis.AuthRateLimitPrefix, redis.AuthRateLimitMax, redis.RateLimitWindow, redis.AuthRateLimitBlock)
	apiRateLimiter := redis.NewFixedWindowLimiter(redisClient,
		redis.APIRateLimitPrefix, redis.APIRateLimitMax, redis.RateLimitWindow, redis.APIRateLimitBlock)

	runner := queue.NewRunner(queue.RunnerConfig{
		WorkerCount: cfg.Queue.WorkerCount,
		BufferSize:  cfg.Queue.BufferSize,
	}, logger)

	notificationProcessor := jobs.NewNotificationProcessor(notificationStore, logger)
	cleanupProcessor := jobs.NewCleanupProcessor(assignmentStore, historyStore, commentStore, logger)
	jobs.Register(runner, notificationProcessor, cleanupProcessor)

	eventHandler := events.NewTaskEventHandler(taskStore, assignmentStore, notificationStore, runner, logger)
	eventHandler.RegisterProcessors(runner)
	eventHandler.Register(eventBus)

	runner.Start()

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		runner.Stop()
		redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	refreshLifetime := time.Duration(cfg.Auth.RefreshTokenLifetimeMinutes) * time.Minute

	taskService := service.NewTaskService(
		taskStore,
		assignmentStore,
		historyStore,
		commentStore,
		notificationStore,
		taskCache,
		runner,
		eventBus,
		logger,
	)
	notificationService := service.NewNotificationService(notificationStore, logger)
	userService := service.NewUserService(userStore, jwtService, hasher, tokenStore, refreshLifetime, logger)

	return &application{
		config:              cfg,
		logger:              logger,
		db:                  db,
		redis:               redisClient,
		bus:                 eventBus,
		queue:               runner,
		taskHandler:         api.NewTaskHandler(taskService, logger),
		notificationHandler: api.NewNotificationHandler(notificationService, logger),
		authHandler:         api.NewAuthHandler(userService, logger),
		authMiddleware:      apimiddleware.NewAuthMiddleware(jwtService),
		authRateLimiter:     authRateLimiter,
		apiRateLimiter:      apiRateLimiter,
	}, nil
}

// close releases resources in reverse dependency order: stop accepting
// queue work, drain the bus, then drop the connections.
func (app *application) close() {
	app.queue.Stop()
	if err := app.bus.Close(); err != nil {
		app.logger.Warn("failed to close event bus", "error", err)
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Warn("failed to close redis client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn("failed to close database", "error", err)
	}
}

// setupDatabase opens the connection pool and verifies connectivity.
func setupDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// runMigrations applies any pending goose migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetLogger(&gooseSlogAdapter{logger: logger.With("component", "migrations")})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// gooseSlogAdapter routes goose output through slog.
type gooseSlogAdapter struct {
	logger *slog.Logger
}

func (g *gooseSlogAdapter) Fatalf(format string, v ...interface{}) {
	g.logger.Error(fmt.Sprintf(format, v...))
}

func (g *gooseSlogAdapter) Printf(format string, v ...interface{}) {
	g.logger.Info(fmt.Sprintf(format, v...))
}
