package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio-backend/internal/alert"
	"studio-backend/internal/config"
	"studio-backend/internal/domain"
	"studio-backend/internal/messaging"
	"studio-backend/internal/observability"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting audit alerter")

	if cfg.RabbitMQURL == "" {
		slog.Error("RABBITMQ_URL must be set for the audit alerter")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
	rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL, 30, 2*time.Second)
	rmqCancel()
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	slog.Info("connected to rabbitmq")

	notifiers := alert.Notifiers{alert.LogNotifier{}}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, alert.NewWebhookNotifier(cfg.AlertWebhookURL))
		slog.Info("webhook notifications enabled")
	}

	consumer := messaging.NewAlertConsumer(rmq, notifiers, domain.Severity(cfg.AlertMinSeverity))
	done, err := consumer.Start(ctx)
	if err != nil {
		slog.Error("failed to start consuming", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("audit alerter is ready",
		slog.String("min_severity", cfg.AlertMinSeverity))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("shutting down audit alerter")
	case <-done:
		slog.Warn("alert delivery channel closed")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("alert consumer did not stop in time")
	}

	slog.Info("audit alerter stopped")
}
