package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"pricepilot/internal/config"
	apphttp "pricepilot/internal/http"
	"pricepilot/internal/repository/sqlstore"
	"pricepilot/internal/service"
	"pricepilot/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		logger.Warnf("unknown log level %q, keeping info", cfg.Log.Level)
	} else {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("token service: %v", err)
	}

	// connects on first use
	store := sqlstore.NewManager(cfg.Database.URL, sqlstore.WithLogger(logger))
	defer store.Close()

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup login limiter: %v", err)
	}
	defer closeLimiter()

	images, err := buildImageArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	userService := service.NewUserService(service.Deps{
		Store:   store,
		Hasher:  service.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:  tokens,
		Limiter: limiter,
		Images:  images,
		Logger:  logger,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(apphttp.Options{
		Users:  userService,
		Tokens: tokens,
		Gate: apphttp.GateConfig{
			Prefixes:  cfg.Auth.Protected,
			LoginPath: cfg.Auth.LoginPath,
		},
		CookieSecure: cfg.Auth.CookieSecure,
		Logger:       logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildLimiter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (service.Limiter, func(), error) {
	if cfg.RateLimit.Attempts == 0 {
		logger.Warn("login rate limiting disabled")
		return nil, func() {}, nil
	}

	if cfg.Redis.Addr == "" {
		limiter := service.NewMemoryLimiter(cfg.RateLimit.Attempts, cfg.RateLimit.Window)
		logger.Infof("login limiter: %d attempts per %s (in-memory)", cfg.RateLimit.Attempts, cfg.RateLimit.Window)
		return limiter, limiter.Close, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Infof("login limiter: %d attempts per %s (redis %s)", cfg.RateLimit.Attempts, cfg.RateLimit.Window, cfg.Redis.Addr)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warnf("close redis: %v", err)
		}
	}
	return service.NewRedisLimiter(client, cfg.RateLimit.Attempts, cfg.RateLimit.Window), closeFn, nil
}

func buildImageArchive(ctx context.Context, cfg config.Config, logger *logrus.Logger) (service.ImageArchiver, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("profile image archive disabled (no storage bucket)")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving profile images to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewProfileImageArchive(storage.NewS3Service(client), cfg.Storage.Bucket, cfg.Storage.KeyPrefix), nil
}
