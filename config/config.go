package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	awspkg "shopcart-service/pkg/aws"
)

// Config holds all configuration for the shopcart service.
type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	AllowedOrigins []string

	// EventsBackend is one of none, kafka, sns.
	EventsBackend    string
	KafkaBrokers     []string
	KafkaTopic       string
	CheckoutTopicARN string

	// CatalogBackend is one of postgres, mongo.
	CatalogBackend string
	MongoURI       string
	MongoDB        string
	CatalogSeedURL string
	SeedOnStart    bool

	RequestTimeout time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// Load reads configuration from the environment (and an optional .env file),
// then applies the Secrets Manager override when AWS_USE_SECRETS=true.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		SessionTTL:       getDuration("SESSION_TTL", 7*24*time.Hour),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		EventsBackend:    strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:       getEnv("KAFKA_CHECKOUT_TOPIC", "checkout-events"),
		CheckoutTopicARN: os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		CatalogBackend:   strings.ToLower(getEnv("CATALOG_BACKEND", "postgres")),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGO_DB", "shopcart"),
		CatalogSeedURL:   getEnv("CATALOG_SEED_URL", "https://fakestoreapi.com/products?limit=10"),
		SeedOnStart:      getBool("SEED_ON_START", true),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		RateLimitBurst:   getInt("RATE_LIMIT_BURST", 50),
	}
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.IsProduction())

	// Override secrets from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		cfg.applySecrets(context.Background())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		errs = append(errs, errors.New("database config incomplete"))
	}
	switch c.EventsBackend {
	case "none", "kafka":
	case "sns":
		if c.CheckoutTopicARN == "" {
			errs = append(errs, errors.New("CHECKOUT_SNS_TOPIC_ARN is required for the sns events backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend))
	}
	switch c.CatalogBackend {
	case "postgres", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// PostgresDSN renders the gorm/pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func (c *Config) applySecrets(ctx context.Context) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return
	}
	sm := awspkg.NewServiceSecrets(awsCfg)

	if secret, err := sm.JWTSecret(ctx); err == nil && secret != "" {
		c.JWTSecret = secret
	}

	creds, err := sm.DBCredentials(ctx)
	if err != nil || creds == nil {
		return
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.PostgresUser, creds.User)
	override(&c.PostgresPassword, creds.Password)
	override(&c.PostgresDB, creds.Database)
	override(&c.PostgresHost, creds.Host)
	override(&c.PostgresPort, creds.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); part != "" {
			out = append(out, part)
		}
	}
	return out
}
