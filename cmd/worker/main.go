package main

import (
	"context"
	"encoding/json"
	"flag"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/config"
	postgres_wrapper "github.com/mpr89/wheeltrader/pkg/infra/postgres"
	"github.com/mpr89/wheeltrader/pkg/ledger/repo"
	"github.com/mpr89/wheeltrader/pkg/ledger/worker"
	"github.com/mpr89/wheeltrader/pkg/logging"
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
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx := context.Background()

	nc, err := nats.Connect(cfg.Nats.URL)
	if err != nil {
		logger.Fatal("nats connect failed", zap.Error(err))
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal("jetstream context failed", zap.Error(err))
	}

	_, _ = js.AddStream(&nats.StreamConfig{
		Name:     "ORDERS",
		Subjects: []string{"ORDERS.*"},
	})

	db, err := postgres_wrapper.InitPostgres(cfg.LedgerDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	sqlRepo := repo.NewRepo(db)

	w := worker.NewWorker(sqlRepo, logger)
	if err := w.StartConsumer(ctx, js, cfg.Nats.Subject, cfg.Nats.Durable); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
