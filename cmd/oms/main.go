package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/config"
	"github.com/openquant/ordercore/pkg/audit"
	fixgateway "github.com/openquant/ordercore/pkg/broker/fix"
	"github.com/openquant/ordercore/pkg/calendar"
	"github.com/openquant/ordercore/pkg/eventbus"
	postgres_wrapper "github.com/openquant/ordercore/pkg/infra/postgres"
	redis_wrapper "github.com/openquant/ordercore/pkg/infra/redis"
	"github.com/openquant/ordercore/pkg/logging"
	"github.com/openquant/ordercore/pkg/ordercore"
	"github.com/openquant/ordercore/pkg/ordercore/fill"
	"github.com/openquant/ordercore/pkg/ordercore/idempotency"
	"github.com/openquant/ordercore/pkg/ordercore/queue"
	"github.com/openquant/ordercore/pkg/ordercore/repo"
	"github.com/openquant/ordercore/pkg/ordercore/tag"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	go func() {
		http.ListenAndServe("localhost:6060", nil)
	}()

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

	// storage
	db := postgres_wrapper.InitPostgresWithBackoff(cfg.CoreDB)
	sqlRepo := repo.NewRepo(db)

	redisClient, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("init redis failed", zap.Error(err))
	}

	// event plumbing
	bus := eventbus.NewInMemoryBus(logger)

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
	bridge := eventbus.NewNATSBridge(js, cfg.Nats.Subject, bus, logger)
	bridge.Start(ctx)
	defer bridge.Stop()

	// decision sinks
	recorder := audit.MultiRecorder{
		audit.NewZapRecorder(logger),
		audit.NewStoreRecorder(sqlRepo.Decision(), logger),
	}
	if cfg.AuditKafka != nil {
		kafkaRecorder := audit.NewKafkaRecorder(*cfg.AuditKafka, logger)
		defer kafkaRecorder.Close() // nolint
		recorder = append(recorder, kafkaRecorder)
	}

	// core
	guard := idempotency.NewGuard(idempotency.NewRedisKV(redisClient), logger)
	orderQueue := queue.NewPriorityQueue()
	router := ordercore.NewRouter(orderQueue, guard, recorder, logger)
	tags := tag.NewGenerator()

	gateway := fixgateway.NewGateway(cfg.Broker, logger)
	fillListener := ordercore.NewBrokerFillListener(sqlRepo.Order(), bus, logger)
	gateway.OnReport(func(report fixgateway.ExecReport) {
		fillListener.OnBrokerReport(ctx, report.ToOrder())
	})
	if err := gateway.Start(ctx); err != nil {
		logger.Fatal("start fix gateway failed", zap.Error(err))
	}
	defer gateway.Stop()

	dispatcher := ordercore.NewDispatcher(orderQueue, gateway, sqlRepo.Order(), guard, bus, logger)

	aggregator := fill.NewAggregator(sqlRepo.Fill(), sqlRepo.Order(), logger)
	aggregator.Run(ctx, bus)
	correlator := fill.NewCorrelator(logger)
	correlator.Run(ctx, bus)

	amendments := ordercore.NewAmendmentService(sqlRepo.Order(), gateway, bus, recorder, logger)
	executor := ordercore.NewMultiLegExecutor(router, sqlRepo.Journal(), tags, recorder, logger)

	loc, _ := time.LoadLocation(cfg.Session.Location)
	cal := calendar.NewSessionCalendar(cfg.Session.CloseHour, cfg.Session.CloseMinute, loc)
	monitor := ordercore.NewTimeoutMonitor(sqlRepo.Order(), gateway, cal, bus, recorder, logger)

	core := ordercore.NewCore(router, dispatcher, executor, amendments, monitor)
	core.Start()

	checkEvery := time.Duration(cfg.TimeoutCheckSeconds) * time.Second
	if checkEvery == 0 {
		checkEvery = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(checkEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				core.CheckTimeouts(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println("Order core started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	cancel()
	core.Stop()

	fmt.Println("Exited cleanly.")
}
