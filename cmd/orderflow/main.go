package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/davicafu/orderflow/internal/config"
	"github.com/davicafu/orderflow/internal/order/application"
	orderEvents "github.com/davicafu/orderflow/internal/order/infra/inbound/events"
	orderHttp "github.com/davicafu/orderflow/internal/order/infra/inbound/http"
	"github.com/davicafu/orderflow/internal/order/infra/outbound/dedup"
	"github.com/davicafu/orderflow/internal/shared/infra/logship"
	"github.com/davicafu/orderflow/internal/shared/infra/metrics"
	"github.com/davicafu/orderflow/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		_ = logger.Init("info")
		logger.Logger().Fatal("invalid configuration", zap.Error(err))
	}

	// ---------------- Logger ----------------
	// Con el envío activo, cada entrada de error viaja también al topic de logs.
	var extraCores []zapcore.Core
	if cfg.LogShipping.Enabled {
		shipWriter := newKafkaWriter(cfg.Kafka.Brokers, cfg.LogShipping.Topic)
		defer shipWriter.Close()
		sink := logship.NewKafkaSink(shipWriter)
		extraCores = append(extraCores, logship.NewCore(
			logship.NewWriter(sink, cfg.LogShipping.Group, "orderflow", 2*time.Second),
			zapcore.ErrorLevel,
		))
	}
	if err := logger.Init(cfg.Log.Level, extraCores...); err != nil {
		panic(err)
	}
	log := logger.Logger()
	defer log.Sync()

	if cfg.Webhook.Signature == "" {
		log.Warn("⚠️ WEBHOOK_SIGNATURE no configurada: todas las peticiones al webhook fallarán con 500")
	}

	promMetrics := metrics.New()

	// ---------------- Dedup store ----------------
	store, purger, closeStore, err := buildDedupStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dedup store", zap.Error(err))
	}
	defer closeStore()

	if purger != nil {
		go dedup.NewSweeper(purger, cfg.Dedup.SweepInterval, log).Start(ctx)
	}

	// ---------------- Cola + consumidor ----------------
	effect := buildEffect(cfg, log)
	publisher, closeQueue := startOrderQueue(ctx, cfg, store, effect, promMetrics, log)
	defer closeQueue()

	// ---------------- Notificador de fallos ----------------
	if cfg.LogShipping.Enabled {
		alertPublisher, closeAlerts, err := buildAlertPublisher(ctx, cfg, log)
		if err != nil {
			log.Fatal("failed to initialize alert channels", zap.Error(err))
		}
		defer closeAlerts()

		notifier := application.NewFailureNotifier(alertPublisher, promMetrics, log)
		logReader := newKafkaReader(cfg.Kafka.Brokers, cfg.LogShipping.Topic, cfg.LogShipping.GroupID)
		defer logReader.Close()
		orderEvents.NewLogEnvelopeConsumer(logReader, notifier, log).Start(ctx)
	} else {
		log.Info("Envío de logs desactivado, el notificador de fallos no se inicia")
	}

	// ---------------- HTTP ----------------
	ingestor := application.NewWebhookIngestor(publisher, nil, cfg.Webhook.Signature, promMetrics, log)
	router := gin.Default()
	orderHttp.RegisterOrderRoutes(router, orderHttp.NewWebhookHandler(ingestor, log))
	orderHttp.RegisterOpsRoutes(router, promMetrics.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown incompleto", zap.Error(err))
		}
	}()

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTP.Port),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.String("dedup_backend", cfg.Dedup.Backend),
		zap.String("dedup_write_mode", cfg.Dedup.WriteMode),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("failed to start server", zap.Error(err))
	}
	log.Info("🛑 Server detenido")
}
