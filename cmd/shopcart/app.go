package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcart-service/config"
	"shopcart-service/database"
	"shopcart-service/events"
	"shopcart-service/logger"
	awspkg "shopcart-service/pkg/aws"
	"shopcart-service/repository"
)

// app owns the process-wide connections. Commands open only what they use.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *gorm.DB
	redis *redis.Client
	mongo *mongo.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return &app{cfg: cfg, logger: logger.Initialize(cfg.Env)}, nil
}

func (a *app) openPostgres(ctx context.Context) error {
	db, err := database.ConnectPostgres(ctx, a.cfg.PostgresDSN(), a.logger, 5)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) openRedis(ctx context.Context) error {
	client, err := database.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return err
	}
	a.redis = client
	a.logger.Info("Connected to Redis successfully")
	return nil
}

// productRepository returns the catalog store selected by CATALOG_BACKEND.
func (a *app) productRepository(ctx context.Context) (repository.ProductRepository, error) {
	if a.cfg.CatalogBackend != "mongo" {
		return repository.NewGormProductRepository(a.db), nil
	}
	client, db, err := database.ConnectMongo(ctx, a.cfg.MongoURI, a.cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	a.logger.Info("Connected to MongoDB successfully", zap.String("database", a.cfg.MongoDB))
	return repository.NewMongoProductRepository(db), nil
}

// publisher returns the checkout event sink selected by EVENTS_BACKEND.
func (a *app) publisher(ctx context.Context) (events.Publisher, error) {
	switch a.cfg.EventsBackend {
	case "kafka":
		a.logger.Info("Publishing checkout events to Kafka",
			zap.Strings("brokers", a.cfg.KafkaBrokers),
			zap.String("topic", a.cfg.KafkaTopic),
		)
		return events.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic), nil
	case "sns":
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		a.logger.Info("Publishing checkout events to SNS", zap.String("topic_arn", a.cfg.CheckoutTopicARN))
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), a.cfg.CheckoutTopicARN), nil
	default:
		return events.NopPublisher{}, nil
	}
}

func (a *app) catalogClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func (a *app) close() error {
	var errs []error
	if err := database.ClosePostgres(a.db); err != nil {
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.mongo != nil {
		if err := database.CloseMongo(a.mongo); err != nil {
			errs = append(errs, fmt.Errorf("mongo: %w", err))
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
