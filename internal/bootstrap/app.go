package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docfill/internal/ai"
	"docfill/internal/cache"
	"docfill/internal/config"
	"docfill/internal/logger"
	"docfill/internal/metrics"
	mysqlClient "docfill/internal/platform/mysql"
	rabbitmqClient "docfill/internal/platform/rabbitmq"
	redisClient "docfill/internal/platform/redis"
	"docfill/internal/repository"
	"docfill/internal/worker"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions repository.SessionStore
	// Generator backs AI edits. It is never nil once built.
	Generator ai.Generator
	Metrics   *metrics.Recorder

	// Set only for the redis session backend.
	Redis *redis.Client

	// Set only when the transcript is enabled.
	MySQL            *gorm.DB
	MQConn           *amqp.Connection
	Publisher        *rabbitmqClient.TranscriptPublisher
	TranscriptWorker *worker.TranscriptPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	app, err := Build(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return app, nil
}

// Build connects the dependencies cfg asks for. On failure everything opened
// so far is closed again.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{
		Config:    cfg,
		Logger:    log,
		Generator: NewGenerator(cfg.LLM, cfg.LLMTimeout()),
		StartedAt: time.Now(),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewRecorder()
	}

	switch cfg.Session.Backend {
	case "redis":
		app.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return app, err
		}
		app.Sessions = cache.NewRedisSessionStore(app.Redis, cfg.SessionTTL(), cfg.Session.KeyPrefix)
	default:
		app.Sessions = repository.NewMemorySessionStore(cfg.SessionTTL(), cfg.SessionCleanupInterval())
	}

	if cfg.Transcript.Enabled {
		if err = app.startTranscript(ctx); err != nil {
			return app, err
		}
	}

	log.Info("application built",
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("generator", app.Generator.Name()),
		zap.Bool("transcript", cfg.Transcript.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return app, nil
}

func (a *App) startTranscript(ctx context.Context) error {
	db, err := mysqlClient.New(ctx, a.Config.MySQLDSN())
	if err != nil {
		return err
	}
	a.MySQL = db

	conn, err := rabbitmqClient.New(a.Config.RabbitMQ.URL, a.Config.RabbitMQ.Queue)
	if err != nil {
		return err
	}
	a.MQConn = conn
	a.Publisher = rabbitmqClient.NewTranscriptPublisher(conn, a.Config.RabbitMQ.Queue)

	a.TranscriptWorker = worker.NewTranscriptPersistWorker(
		conn,
		repository.NewMessageRepository(db),
		a.Config.RabbitMQ.Queue,
		a.Logger,
	)
	if err := a.TranscriptWorker.Start(ctx); err != nil {
		return fmt.Errorf("start transcript worker failed: %w", err)
	}
	return nil
}

// NewGenerator picks the AI edit backend named by cfg.Provider.
func NewGenerator(cfg config.LLMConfig, timeout time.Duration) ai.Generator {
	if cfg.Provider == "openai" {
		return ai.NewOpenAICompatibleGenerator(
			ai.NewOpenAICompatibleClient(timeout),
			ai.ChatConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model},
		)
	}
	return ai.NewGeminiGenerator(cfg.APIKey, cfg.Model)
}

func (a *App) Close() error {
	var errs []error
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.MySQL != nil {
		errs = append(errs, mysqlClient.Close(a.MySQL))
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
