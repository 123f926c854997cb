package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/adapters/events"
	httpadapter "github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/adapters/scheduler"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/application"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

type Runtime struct {
	cfg            Config
	logger         *slog.Logger
	httpServer     *http.Server
	grpcServer     *grpc.Server
	grpcLis        net.Listener
	outbox         *eventadapter.OutboxWorker
	campaignStatus *scheduler.CampaignStatusWorker
	cleanup        *scheduler.ReservationCleanupWorker
	cleanupFn      func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping m34 flash sale service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(db)
	counters := cacheadapter.NewRedisCounterStore(redisClient)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			HoldDuration:     cfg.HoldDuration,
			CleanupBatchSize: cfg.CleanupBatchSize,
		},
		Campaigns:    repos.Campaigns,
		Reservations: repos.Reservations,
		Counters:     counters,
		Outbox:       repos.Outbox,
		Logger:       logger,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		_ = lis.Close()
		return nil, err
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	campaignStatus := scheduler.NewCampaignStatusWorker(logger, svc, cfg.CampaignStatusInterval)
	cleanup := scheduler.NewReservationCleanupWorker(logger, svc, cfg.CleanupInterval)

	return &Runtime{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		grpcServer:     grpcServer,
		grpcLis:        lis,
		outbox:         outbox,
		campaignStatus: campaignStatus,
		cleanup:        cleanup,
		cleanupFn: func(ctx context.Context) {
			closePublisher()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// newPublisher selects Kafka when brokers are configured, otherwise the
// log-only publisher so local runs need no broker.
func newPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no kafka brokers configured, reservation events are log-only")
		return eventadapter.NewLoggingPublisher(logger), func() {}, nil
	}
	kafkaPub, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
		application.EventReservationCreated:   "commerce.sale.reservation.created",
		application.EventReservationConfirmed: "commerce.sale.reservation.confirmed",
		application.EventReservationExpired:   "commerce.sale.reservation.expired",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return kafkaPub, func() { _ = kafkaPub.Close() }, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	run := func(name string, loop func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.logger.Info("worker started", "worker", name)
			if err := loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("worker stopped", "worker", name, "error", err)
			}
		}()
	}

	run("outbox", r.outbox.Run)
	run("campaign_status", r.campaignStatus.Run)
	run("reservation_cleanup", r.cleanup.Run)
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
