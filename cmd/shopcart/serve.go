package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/controllers"
	"shopcart-service/database"
	"shopcart-service/metrics"
	"shopcart-service/middleware"
	"shopcart-service/repository"
	"shopcart-service/routes"
	"shopcart-service/services"
)

const serviceName = "shopcart-service"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port        string
	SkipMigrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&opts.SkipMigrate, "skip-migrate", false, "do not migrate the schema on start")

	return cmd
}

func serve(ctx context.Context, opts *ServeOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Error("Shutdown close error", zap.Error(err))
		}
	}()
	if opts.Port != "" {
		a.cfg.Port = opts.Port
	}
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Storage ---
	if err := a.openPostgres(ctx); err != nil {
		return err
	}
	if !opts.SkipMigrate {
		if err := database.Migrate(a.db); err != nil {
			return err
		}
	}
	if err := a.openRedis(ctx); err != nil {
		return err
	}
	products, err := a.productRepository(ctx)
	if err != nil {
		return err
	}
	publisher, err := a.publisher(ctx)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// --- Dependency injection ---
	reg := metrics.NewRegistry()
	identityRepo := repository.NewGormIdentityRepository(a.db)
	cartRepo := repository.NewGormCartRepository(a.db)
	sessionRepo := repository.NewRedisSessionRepository(a.redis)

	tokenService := services.NewTokenService(a.cfg.JWTSecret, a.cfg.SessionTTL, sessionRepo)
	cartService := services.NewCartService(cartRepo, products, reg, a.logger)
	authService := services.NewAuthService(identityRepo, cartService, tokenService, reg, a.logger)
	checkoutService := services.NewCheckoutService(cartRepo, products, publisher, reg, a.logger)
	catalogService := services.NewCatalogService(products, a.catalogClient(), a.cfg.CatalogSeedURL, a.logger)

	if a.cfg.SeedOnStart {
		if _, err := catalogService.Seed(ctx); err != nil {
			a.logger.Warn("Catalog seeding failed (non-fatal)", zap.Error(err))
		}
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	limiter := middleware.NewRateLimiter(limiterCtx, middleware.PerMinute(a.cfg.RateLimitRPM), a.cfg.RateLimitBurst, 10*time.Minute)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.MetricsMiddleware(reg))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(a.cfg.AllowedOrigins))
	r.Use(limiter.Middleware())
	r.Use(middleware.Timeout(a.cfg.RequestTimeout))
	r.Use(apperror.ErrorMiddleware(a.logger))

	cookies := controllers.CookieConfig{Secure: a.cfg.CookieSecure, MaxAge: a.cfg.SessionTTL}
	routes.Setup(r, routes.Handlers{
		Auth:         controllers.NewAuthController(authService, cookies, a.logger),
		Cart:         controllers.NewCartController(cartService, a.logger),
		Checkout:     controllers.NewCheckoutController(checkoutService, a.logger),
		Products:     controllers.NewProductController(catalogService, a.logger),
		RequireAuth:  middleware.AuthMiddleware(authService, a.logger),
		OptionalAuth: middleware.OptionalAuth(authService),
		Metrics:      reg,
		Service:      serviceName,
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Shopcart service started", zap.String("port", a.cfg.Port), zap.String("env", a.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	a.logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
	}
	a.logger.Info("Shopcart service stopped gracefully")
	return nil
}
