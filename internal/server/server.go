package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/internal/api"
	"citywatch.dev/sentinel/internal/feed"
	"citywatch.dev/sentinel/internal/notify"
	"citywatch.dev/sentinel/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server wires the database, feed consumer, HTTP API and metrics
// endpoint together and manages their lifecycle.
type Server struct {
	logger     *slog.Logger
	config     *Config
	db         *gorm.DB
	consumer   *feed.Consumer
	httpServer *http.Server
	metricsSrv *http.Server
}

// Config holds the configuration for the Server.
type Config struct {
	Logger *slog.Logger

	// Database configuration
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RabbitMQ configuration
	RabbitMQURL string
	QueueName   string

	// CityID scopes the live feed's ingested alerts.
	CityID string

	// HTTP configuration
	HTTPPort    int
	MetricsPort int

	// Auth configuration
	JWTSecret    string
	NotifyAPIKey string

	// Notification channels, each optional.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ContentURL    string
	ContentAPIKey string
}

// NewServer creates a new Server instance.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	if cfg.CityID == "" {
		return nil, errors.New("city ID cannot be empty")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.MetricsPort <= 0 {
		return nil, errors.New("metrics port must be positive")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting sentinel server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Initialize database
	db, err := alerting.NewDB(&alerting.DBConfig{
		Logger:   s.logger,
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	s.logger.Info("database initialized successfully")

	service, err := alerting.NewService(s.logger, s.db)
	if err != nil {
		return fmt.Errorf("failed to initialize alerting service: %w", err)
	}

	apiMetrics := metrics.NewAPIMetrics("sentinel")
	feedMetrics := metrics.NewFeedMetrics("sentinel")

	// Initialize feed consumer
	consumer, err := feed.NewConsumer(&feed.ConsumerConfig{
		Logger:      s.logger,
		Service:     service,
		RabbitMQURL: s.config.RabbitMQURL,
		QueueName:   s.config.QueueName,
		CityID:      s.config.CityID,
		Metrics:     feedMetrics,
		MQMetrics:   metrics.NewMQMetrics("sentinel"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize feed consumer: %w", err)
	}
	s.consumer = consumer

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start feed consumer: %w", err)
	}

	// Initialize notification dispatch
	dispatcher, err := s.buildDispatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize notification dispatch: %w", err)
	}

	handler, err := api.NewHandler(&api.HandlerConfig{
		Logger:       s.logger,
		Service:      service,
		Dispatcher:   dispatcher,
		NotifyAPIKey: s.config.NotifyAPIKey,
		Metrics:      apiMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize API handler: %w", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:    handler,
		JWTService: api.NewJWTService([]byte(s.config.JWTSecret)),
		Logger:     s.logger,
		Metrics:    apiMetrics,
	})

	// Start HTTP API server
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler: router,
	}

	httpErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP API server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	// Start metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	s.metricsSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.MetricsPort),
		Handler: metricsMux,
	}

	metricsErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting metrics server", "address", s.metricsSrv.Addr)
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- fmt.Errorf("metrics server error: %w", err)
		}
		close(metricsErr)
	}()

	s.logger.Info("sentinel server started successfully")

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			s.Shutdown()
			return err
		}
	case err := <-metricsErr:
		if err != nil {
			s.logger.Error("metrics server error", "error", err)
			cancel()
			s.Shutdown()
			return err
		}
	}

	return s.Shutdown()
}

// buildDispatcher assembles the notification dispatcher from whichever
// channels are configured. Returns a dispatcher with no channels when
// none are, so the route still answers with per-channel failures.
func (s *Server) buildDispatcher() (*notify.Dispatcher, error) {
	cfg := &notify.DispatcherConfig{
		Logger:  s.logger,
		Metrics: metrics.NewNotifierMetrics("sentinel"),
	}

	if s.config.SMTPHost != "" {
		mailer, err := notify.NewEmailSender(notify.EmailConfig{
			Host:     s.config.SMTPHost,
			Port:     s.config.SMTPPort,
			Username: s.config.SMTPUsername,
			Password: s.config.SMTPPassword,
			From:     s.config.SMTPFrom,
		})
		if err != nil {
			return nil, err
		}
		cfg.Mailer = mailer
	}

	if s.config.TwilioAccountSID != "" {
		caller, err := notify.NewVoiceCaller(notify.VoiceConfig{
			AccountSID: s.config.TwilioAccountSID,
			AuthToken:  s.config.TwilioAuthToken,
			FromNumber: s.config.TwilioFromNumber,
		})
		if err != nil {
			return nil, err
		}
		cfg.Caller = caller
	}

	if s.config.ContentURL != "" {
		content, err := notify.NewContentGenerator(notify.ContentConfig{
			URL:    s.config.ContentURL,
			APIKey: s.config.ContentAPIKey,
		})
		if err != nil {
			return nil, err
		}
		cfg.Content = content
	}

	return notify.NewDispatcher(cfg)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down sentinel server")

	var shutdownErr error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop HTTP servers first so no new work arrives
	if s.httpServer != nil {
		s.logger.Info("stopping HTTP API server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to stop HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	if s.metricsSrv != nil {
		s.logger.Info("stopping metrics server")
		if err := s.metricsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to stop metrics server", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("metrics server shutdown error: %w", err))
		}
	}

	// Stop consumer
	if s.consumer != nil {
		s.logger.Info("stopping feed consumer")
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop feed consumer", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("feed consumer shutdown error: %w", err))
		}
	}

	// Close database
	if s.db != nil {
		if err := alerting.CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("database close error: %w", err))
		}
	}

	if shutdownErr != nil {
		s.logger.Error("sentinel server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("sentinel server shutdown completed successfully")
	return nil
}

func joinShutdownErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}
