// Hearth Gateway — шлюз голосового управления умным домом.
//
// Принимает текстовые команды по HTTP, прогоняет их через конвейер
// (намерение → устройства → сенсоры → команды на шину → ответ) и
// стримит события обработки потребителю. Операции с брокером защищены
// circuit breaker'ами по классам publish/subscribe.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/korsky/hearth/internal/api"
	"github.com/korsky/hearth/internal/broker"
	"github.com/korsky/hearth/internal/config"
	"github.com/korsky/hearth/internal/history"
	"github.com/korsky/hearth/internal/intent"
	"github.com/korsky/hearth/internal/orchestrator"
	"github.com/korsky/hearth/internal/pipeline"
	"github.com/korsky/hearth/internal/registry"
	"github.com/korsky/hearth/internal/resilience"
	"github.com/korsky/hearth/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_gateway_http_requests_total",
		Help: "Total HTTP requests handled by hearth-gateway",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting hearth-gateway")

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Реестр устройств. Без файла шлюз стартует с пустым реестром:
	// команды будут отклоняться, но API и подписки работают
	reg, err := registry.LoadFile(cfg.Registry.DevicesFile)
	if err != nil {
		logger.Warn("starting with an empty device registry", "file", cfg.Registry.DevicesFile, "error", err)
		reg = registry.New(nil)
	} else {
		logger.Info("device registry loaded", "devices", reg.Count(), "zones", len(reg.Zones()))
	}

	// История запросов (опционально: без БД шлюз работает дальше)
	var recorder orchestrator.Recorder
	var store api.HistoryStore
	pool, err := history.NewPool(context.Background())
	if err != nil {
		logger.Warn("request history disabled", "error", err)
	} else {
		defer pool.Close()
		repo := history.NewRequestRepo(pool)
		recorder = repo
		store = repo
		logger.Info("connected to database")
	}

	// Брокер: соединение, топология, resilient executor, клиент
	conn, err := broker.NewConnection(cfg.Broker.URL, logger)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := broker.SetupTopology(context.Background(), conn); err != nil {
		logger.Error("failed to setup broker topology", "error", err)
		os.Exit(1)
	}

	executor := resilience.NewExecutor(resilience.ExecutorConfig{
		Classes:        breakerSettings(cfg),
		AttemptTimeout: time.Duration(cfg.Broker.AttemptTimeoutMs) * time.Millisecond,
		Logger:         logger,
	})

	client := broker.NewClient(conn, executor, cfg.Broker.TopicPrefix, logger)

	// Подписки: состояния наполняют кэш реестра, подтверждения
	// фиксируют исход команд и обновляют состояние после них
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()

	err = client.Subscribe(subCtx, broker.StatePattern(cfg.Broker.TopicPrefix),
		broker.NewStateHandler(cfg.Broker.TopicPrefix, reg, logger))
	if err != nil {
		logger.Error("failed to subscribe to device states", "error", err)
		os.Exit(1)
	}

	err = client.Subscribe(subCtx, broker.AckPattern(cfg.Broker.TopicPrefix),
		broker.NewAckHandler(cfg.Broker.TopicPrefix, reg, logger))
	if err != nil {
		logger.Error("failed to subscribe to device acks", "error", err)
		os.Exit(1)
	}

	// Конвейер обработки запросов
	steps := []pipeline.Step{
		pipeline.NewIntentStep(intent.NewRuleResolver(reg.Zones()), logger),
		pipeline.NewDeviceStep(reg, logger),
		pipeline.NewSensorStep(reg, logger),
		pipeline.NewActionStep(client, logger),
		pipeline.NewSpeechStep(logger),
	}

	orch := orchestrator.New(steps, recorder, cfg.Pipeline.EventBuffer, logger)

	// HTTP граница
	handler := api.NewHandler(api.Config{
		Orchestrator: orch,
		Registry:     reg,
		History:      store,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s active=%d", time.Since(startTime), orch.Active())
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Gateway.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Gateway.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// breakerSettings собирает настройки брейкеров из конфигурации.
func breakerSettings(cfg *config.Config) map[string]resilience.Settings {
	settings := make(map[string]resilience.Settings, len(cfg.Broker.Classes))
	for class, bc := range cfg.Broker.Classes {
		settings[class] = resilience.Settings{
			MaxRetries:       bc.MaxRetries,
			MaxDelay:         time.Duration(bc.MaxDelayMs) * time.Millisecond,
			OpenTimeout:      time.Duration(bc.OpenTimeoutSec) * time.Second,
			SuccessThreshold: bc.SuccessThreshold,
			Qualify:          resilience.QualifyKinds(bc.Qualify...),
		}
	}
	return settings
}
