// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/animechat/server/internal/auth"
	"github.com/animechat/server/internal/config"
	"github.com/animechat/server/internal/database"
	"github.com/animechat/server/internal/handlers"
	"github.com/animechat/server/internal/metrics"
	"github.com/animechat/server/internal/middleware"
	"github.com/animechat/server/internal/profile"
	"github.com/animechat/server/internal/relay"
)

func main() {
	logger := logrus.New()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	configureLogger(logger, cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func configureLogger(logger *logrus.Logger, c config.Log) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", c.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET is not set; authenticated requests will fail until it is")
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database.DSN); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	pool, err := database.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var broker relay.Broker
	if cfg.Redis.Addr != "" {
		rdb, err := relay.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		broker = relay.NewRedisBroker(rdb, logger, collector)
		logger.Infof("relay using Redis at %s", cfg.Redis.Addr)
	} else {
		broker = relay.NewHub(logger, collector)
		logger.Info("relay running in process")
	}
	defer broker.Close()

	users := database.NewUserStore(pool)
	tokens := auth.NewTokenService(cfg.JWT.Secret, auth.WithTTL(cfg.JWT.TTL))

	srv := handlers.NewAPIServer(handlers.APIServer{
		Users:     users,
		Friends:   database.NewFriendStore(pool),
		Messages:  database.NewMessageStore(pool),
		Watchlist: database.NewWatchlistStore(pool),
		Tokens:    tokens,
		Profiles:  profile.NewPicker(cfg.AssetsDir),
		Broker:    broker,
		Metrics:   collector,
		Logger:    logger,
		WSOrigins: handlers.OriginPatterns(cfg.CORS.Origins),
	})
	router := handlers.NewRouter(srv, handlers.RouterConfig{
		Gate:           middleware.NewAuthGate(tokens, users, logger),
		CORSOrigins:    cfg.CORS.Origins,
		AuthRateLimit:  cfg.AuthLimits.Requests,
		AuthRateWindow: cfg.AuthLimits.Window,
		AssetsDir:      cfg.AssetsDir,
		Health:         pool,
		Observer:       collector,
		MetricsHandler: metrics.Handler(reg),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown; closing
	// the broker ends their subscriptions
	_ = broker.Close()
	return httpSrv.Shutdown(shutdownCtx)
}
