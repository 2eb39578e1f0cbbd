package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/config"
	postgres_wrapper "github.com/openquant/ordercore/pkg/infra/postgres"
	"github.com/openquant/ordercore/pkg/logging"
	"github.com/openquant/ordercore/pkg/ordercore/repo"
	"github.com/openquant/ordercore/pkg/ordercore/worker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	logger := logging.InitGlobal(logging.INFO)
	defer logger.Sync() // nolint

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.CoreDB)
	sqlRepo := repo.NewRepo(db)

	nc, err := nats.Connect(cfg.Nats.URL)
	if err != nil {
		logger.Fatal("connect nats failed", zap.Error(err))
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal("jetstream failed", zap.Error(err))
	}
	_, _ = js.AddStream(&nats.StreamConfig{
		Name:     cfg.Nats.Stream,
		Subjects: []string{cfg.Nats.Stream + ".*"},
	})

	w := worker.NewWorker(sqlRepo, logger)
	go func() {
		if err := w.StartConsumer(ctx, js, cfg.Nats.Subject, cfg.Nats.Durable); err != nil && err != context.Canceled {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	logger.Info("order event worker started")

	<-sigs
	cancel()
}
