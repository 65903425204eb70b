package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/api"
	"github.com/mpr89/wheeltrader/config"
	"github.com/mpr89/wheeltrader/pkg/autotrader"
	postgres_wrapper "github.com/mpr89/wheeltrader/pkg/infra/postgres"
	redis_wrapper "github.com/mpr89/wheeltrader/pkg/infra/redis"
	"github.com/mpr89/wheeltrader/pkg/ledger/repo"
	"github.com/mpr89/wheeltrader/pkg/logging"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	logger := logging.NewZapLogger(logging.INFO)
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.LedgerDB)
	ledger := repo.NewRepo(db)

	sessions := &venueSessions{
		factory: venue.NewSessionFactory(cfg.Venue, func() venue.Transport {
			return venue.NewPaperTransport()
		}, logger),
	}

	opts := []autotrader.Option{}
	if cfg.Redis != nil {
		rdb, err := redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, quote cache disabled", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.QuoteCacheTTL) * time.Second
			opts = append(opts, autotrader.WithQuoteCache(venue.NewQuoteCache(rdb, ttl, logger)))
		}
	}
	if cfg.Nats != nil {
		nc, err := nats.Connect(cfg.Nats.URL)
		if err != nil {
			logger.Warn("nats unavailable, order events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			opts = append(opts, autotrader.WithEventPublisher(autotrader.NewNATSPublisher(nc, cfg.Nats.Subject)))
		}
	}

	svc := autotrader.NewService(
		&autotrader.ServiceConfig{ReconcileBatch: cfg.ReconcileBatch},
		ledger.Order(),
		sessions,
		logger,
		opts...,
	)

	router := gin.Default()
	api.NewHandlers(svc, ledger.Order()).Register(router)

	addr := ":8080"
	if cfg.API != nil && cfg.API.ListenAddr != "" {
		addr = cfg.API.ListenAddr
	}
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("autotrader API listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-sigs
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown error", zap.Error(err))
	}
}

// venueSessions adapts the venue session factory to the service's
// per-call session source.
type venueSessions struct {
	factory *venue.SessionFactory
}

func (v *venueSessions) Acquire(ctx context.Context) (autotrader.VenueSession, error) {
	return v.factory.Acquire(ctx)
}

func (v *venueSessions) Release(s autotrader.VenueSession) {
	if sess, ok := s.(*venue.Session); ok {
		v.factory.Release(sess)
	}
}
