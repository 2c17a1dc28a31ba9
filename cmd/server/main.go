package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"idsync/internal/account"
	"idsync/internal/audit"
	"idsync/internal/connector"
	"idsync/internal/jwttoken"
	"idsync/internal/notification"
	"idsync/internal/notification/uniform"
	"idsync/internal/platform/config"
	"idsync/internal/platform/httpserver"
	"idsync/internal/platform/logger"
	"idsync/internal/platform/postgres"
	platformredis "idsync/internal/platform/redis"
	"idsync/internal/provisioning"
	"idsync/internal/provisioning/event"
	provmetrics "idsync/internal/provisioning/metrics"
	"idsync/internal/provisioning/processors"
	provstore "idsync/internal/provisioning/store"
	"idsync/internal/sync/executor"
	"idsync/internal/sync/handler"
	syncmetrics "idsync/internal/sync/metrics"
	"idsync/internal/sync/resolver"
	"idsync/internal/sync/service"
	configstore "idsync/internal/sync/store/config"
	runlogstore "idsync/internal/sync/store/runlog"
)

// main wires dependencies and runs the server under one errgroup. Business
// logic lives in the internal packages; anything here should read as a parts
// list.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: postgres when configured, in-memory otherwise.
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		if err := pool.Migrate(ctx); err != nil {
			log.Error("postgres migrate failed", "error", err)
			os.Exit(1)
		}
	}

	var (
		entities  account.EntityStore
		systems   account.SystemStore
		accounts  account.AccountStore
		links     account.LinkStore
		contracts account.ContractStore

		syncConfigs service.ConfigStore
		runLogs     service.RunLogStore
		operations  provisioning.OperationStore

		transactor service.Transactor = service.NopTransactor{}
	)
	if pool != nil {
		entities = account.NewPostgresEntityStore(pool)
		systems = account.NewPostgresSystemStore(pool)
		accounts = account.NewPostgresAccountStore(pool)
		links = account.NewPostgresLinkStore(pool)
		contracts = account.NewPostgresContractStore(pool)
		syncConfigs = configstore.NewPostgres(pool)
		runLogs = runlogstore.NewPostgres(pool)
		operations = provstore.NewPostgres(pool)
		transactor = pool
	} else {
		entities = account.NewMemoryEntityStore()
		systems = account.NewMemorySystemStore()
		accounts = account.NewMemoryAccountStore()
		links = account.NewMemoryLinkStore()
		contracts = account.NewMemoryContractStore()
		syncConfigs = configstore.NewMemoryStore()
		runLogs = runlogstore.NewMemoryStore()
		operations = provstore.NewMemoryStore()
	}

	// Uniform password buffer: redis survives restarts, memory for dev.
	var passwords uniform.Buffer = uniform.NewMemoryBuffer()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		passwords = uniform.NewRedisBuffer(redisClient)
		defer redisClient.Close()
	}

	// Audit trail: kafka when brokers are configured.
	var sink audit.Sink = audit.NewLogSink(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
	}
	channelSink := audit.NewChannelSink(256, log)
	auditWorker := audit.NewWorker(sink, channelSink.Inbox(), log)
	auditor := audit.NewEmitter(channelSink)

	notifier := notification.NewLogManager(log)

	// Provisioning pipeline.
	registry := event.NewRegistry(event.WithLogger(log))
	provMetrics := provmetrics.New()
	dispatcher := provisioning.NewDispatcher(registry, cfg.DispatchWorkers,
		provisioning.DispatcherWithLogger(log),
		provisioning.DispatcherWithMetrics(provMetrics),
	)
	provService, err := provisioning.New(operations, registry,
		provisioning.WithLogger(log),
		provisioning.WithMetrics(provMetrics),
		provisioning.WithEntityFlow(entities, links, accounts),
	)
	if err != nil {
		log.Error("provisioning wiring failed", "error", err)
		os.Exit(1)
	}
	registry.Register(processors.NewReadonlySystemProcessor(systems, operations, notifier, log))
	registry.Register(processors.NewRealizationProcessor(systems, operations))
	registry.Register(processors.NewContractProvisioningProcessor(contracts, provService, dispatcher, log))

	// Sync engine.
	conn := connector.NewMemoryConnector(
		connector.WithPageSize(cfg.ConnectorPageSize),
		connector.WithRateLimit(cfg.ConnectorRatePerSec),
	)
	res := resolver.New(accounts, links, entities)
	executors := executor.NewCache(executor.Deps{
		Entities:    entities,
		Accounts:    accounts,
		Links:       links,
		Provisioner: provService,
		Passwords:   passwords,
		Logger:      log,
	})
	syncMetrics := syncmetrics.New()
	runner, err := service.NewSyncRunner(
		syncConfigs, runLogs, accounts, links, res, executors, conn, transactor,
		service.WithLogger(log),
		service.WithMetrics(syncMetrics),
		service.WithAuditor(auditor),
		service.WithNotifier(notifier),
		service.WithPasswordBuffer(passwords),
		service.WithEventRegistry(registry),
	)
	if err != nil {
		log.Error("sync runner wiring failed", "error", err)
		os.Exit(1)
	}

	if err := runner.RecoverInterrupted(ctx); err != nil {
		log.Error("interrupted run recovery failed", "error", err)
		os.Exit(1)
	}

	// HTTP surface.
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "idsync", "idsync-admin")
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(runner, log, tokens).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting idsync", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := dispatcher.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	if err := auditor.Close(); err != nil {
		log.Warn("audit close failed", "error", err)
	}
	if err := sink.Close(); err != nil {
		log.Warn("audit sink close failed", "error", err)
	}
	if pool != nil {
		pool.Close()
	}
	log.Info("shutdown complete")
}
