package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/events"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/handler"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/repository"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/service"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/config"
	mtls "github.com/cloud-wave-best-zizon/stock-tracker/pkg/tls"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const svidWatchInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	products, users, err := newRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	store, mediaDir, err := newMediaStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize media store", zap.String("driver", cfg.MediaDriver), zap.Error(err))
	}

	stager, err := media.NewStager(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		logger.Fatal("Failed to initialize upload staging", zap.Error(err))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.ProductEventsTopic, logger)
	}
	defer publisher.Close()

	productService := service.NewProductService(products, users, store, publisher, logger)
	analyticsService := service.NewAnalyticsService(products, logger)
	authService := service.NewAuthService(users, logger)

	consumerDone := make(chan struct{})
	if cfg.EventsEnabled() {
		consumer := events.NewIdentityConsumer(cfg.KafkaBrokers, cfg.IdentityEventsTopic, cfg.KafkaGroupID, authService, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				logger.Error("Identity consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.RouterConfig{
		Products:     handler.NewProductHandler(productService, stager, logger, cfg.IsDevelopment()),
		Analytics:    handler.NewAnalyticsHandler(analyticsService, logger, cfg.IsDevelopment()),
		Auth:         handler.NewAuthHandler(authService, logger, cfg.IsDevelopment()),
		Logger:       logger,
		AuthSecret:   cfg.AuthSecret,
		AuthRequired: cfg.AuthRequired,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		MediaDir:     mediaDir,
	})

	tlsConfig, svid, err := mtls.Load(ctx, cfg.TLSConfig, logger)
	if err != nil {
		logger.Fatal("Failed to load TLS configuration", zap.Error(err))
	}
	defer svid.Close()
	if svid != nil {
		go svid.Watch(ctx, svidWatchInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageDriver),
			zap.String("media", cfg.MediaDriver),
			zap.Bool("tls", tlsConfig != nil))

		var err error
		if tlsConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Identity consumer did not stop in time")
	}
	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.ProductRepository, repository.UserRepository, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := repository.NewPostgresDB(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(db); err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresProductRepository(db, logger), repository.NewPostgresUserRepository(db, logger), nil

	case config.StorageDynamoDB:
		client, err := repository.NewDynamoDBClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDynamoProductRepository(client, cfg.ProductTableName, logger),
			repository.NewDynamoUserRepository(client, cfg.UserTableName, logger), nil

	case config.StorageMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryProductRepository(), repository.NewMemoryUserRepository(), nil

	default:
		return nil, nil, errors.New("unknown storage driver " + cfg.StorageDriver)
	}
}

// newMediaStore returns the configured store and, for local storage, the
// directory the router should serve.
func newMediaStore(cfg *config.Config, logger *zap.Logger) (media.Store, string, error) {
	switch cfg.MediaDriver {
	case config.MediaCloudinary:
		store, err := media.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder, logger)
		return store, "", err

	case config.MediaLocal:
		baseURL := cfg.MediaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:" + cfg.Port
		}
		store, err := media.NewLocalStore(cfg.UploadDir, baseURL, logger)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil

	default:
		return nil, "", errors.New("unknown media driver " + cfg.MediaDriver)
	}
}
