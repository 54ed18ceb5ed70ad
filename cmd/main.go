package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/api"
	"github.com/akylbek/payment-system/connector-switch/internal/config"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors"
	"github.com/akylbek/payment-system/connector-switch/internal/events"
	"github.com/akylbek/payment-system/connector-switch/internal/metrics"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
	"github.com/akylbek/payment-system/connector-switch/internal/service"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
	"github.com/akylbek/payment-system/connector-switch/internal/transport"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := telemetry.InitTelemetry("connector-switch", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	if err := run(cfg); err != nil {
		telemetry.Logger.Fatal("Connector switch stopped", zap.Error(err))
	}
	telemetry.Logger.Info("Server exited")
}

func run(cfg *config.Config) error {
	registry, err := connectors.NewRegistry(cfg.Connectors)
	if err != nil {
		return fmt.Errorf("build connector registry: %w", err)
	}
	telemetry.Logger.Info("Connectors registered", zap.Strings("connectors", registry.Names()))

	// PostgreSQL holds accounts, canonical states and webhook audit rows
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	accountRepo := repository.NewConnectorAccountRepository(db)
	stateRepo := repository.NewObjectStateRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	for _, r := range []interface{ InitDB() error }{accountRepo, stateRepo, webhookRepo} {
		if err := r.InitDB(); err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
	}

	// Redis fronts account lookups and holds the webhook dedupe locks
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer redisClient.Close()
	accounts := repository.NewCachedAccountRepository(accountRepo, redisClient, cfg.SecretCacheTTL)

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	// One kafka writer per topic
	transitionWriter := events.NewKafkaWriter(cfg.KafkaBrokers, events.TopicStatusChanged)
	webhookWriter := events.NewKafkaWriter(cfg.KafkaBrokers, events.TopicWebhookReceived)
	syncWriter := events.NewKafkaWriter(cfg.KafkaBrokers, events.TopicSyncRequested)
	defer transitionWriter.Close()
	defer webhookWriter.Close()
	defer syncWriter.Close()

	publisher := events.Fanout{
		events.NewKafkaPublisher(transitionWriter, webhookWriter),
		events.NewNatsPublisher(nc),
	}
	syncQueue := events.NewSyncQueue(syncWriter, cfg.KafkaBrokers)

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	executor := service.NewExecutor(registry, transport.NewHTTPClient(cfg.ConnectorTimeout), recorder)
	keeper := service.NewStateKeeper(stateRepo, publisher)
	sw := service.NewSwitch(executor, accounts, keeper, syncQueue)
	pipeline := webhook.NewPipeline(registry, accounts, recorder)
	webhooks := service.NewWebhookService(pipeline, webhookRepo, keeper, publisher, syncQueue, redisClient, cfg.WebhookDedupeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go syncQueue.Consume(ctx, sw.HandleSyncRequest)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(registry, sw, webhooks, stateRepo),
	}
	return serve(ctx, srv)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		telemetry.Logger.Info("Connector Switch starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	telemetry.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	return nil
}
