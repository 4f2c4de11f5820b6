// cmd/advisor-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"advisor-engine/internal/api"
	"advisor-engine/internal/common/camunda"
	"advisor-engine/internal/common/config"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/observability"
	"advisor-engine/internal/reveal"
	processturn "advisor-engine/internal/workers/advisor/process-turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel metrics exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}
	defer deps.Close()

	coord, err := buildCoordinator(cfg, deps, obs, log)
	if err != nil {
		zapLog.Fatal("coordinator setup failed", zap.Error(err))
	}

	var workers []*camunda.Worker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, processturn.TaskType) {
		zeebeClient, err := camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebeClient.Close()

		wcfg := config.GetWorkerConfig(cfg, processturn.TaskType)
		handler := processturn.NewHandler(&processturn.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, coord, log)
		workers = append(workers, camunda.StartWorker(zeebeClient, processturn.TaskType, wcfg, handler.Handle, log))
	}

	apiHandler := api.NewHandler(api.Config{
		RevealChunkSize: reveal.DefaultChunkSize,
		RevealInterval:  config.GetDuration(cfg.Server.RevealInterval),
	}, coord, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      apiHandler.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	apiHandler.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	log.Info("server stopped", nil)
}
