package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hargaemas/gold-monitor/cmd/monitor/config"
	"github.com/hargaemas/gold-monitor/cmd/monitor/logger"
	"github.com/hargaemas/gold-monitor/cmd/monitor/metrics"
	"github.com/hargaemas/gold-monitor/cmd/monitor/router"
	"github.com/hargaemas/gold-monitor/cmd/monitor/store"
	"github.com/hargaemas/gold-monitor/pkg/alert"
	"github.com/hargaemas/gold-monitor/pkg/fetch"
	"github.com/hargaemas/gold-monitor/pkg/httpx"
	"github.com/hargaemas/gold-monitor/pkg/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting gold monitor",
		"version", "v0.1.0",
		"port", cfg.Port,
		"monitors_path", cfg.MonitorsPath,
	)

	monitorsFile, err := config.LoadMonitors(cfg.MonitorsPath)
	if err != nil {
		log.Error("failed to load monitors", "error", err)
		os.Exit(1)
	}

	st := store.New(cfg, log)
	defer func() {
		if closer, ok := st.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	for _, m := range monitorsFile.Monitors {
		if err := st.Register(m.Name, m.Retention); err != nil {
			log.Error("failed to register monitor", "monitor", m.Name, "error", err)
			os.Exit(1)
		}
	}

	mtr := metrics.New()

	sinks := []alert.Sink{alert.NewLogSink(log)}
	if cfg.Alerts.WebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.Alerts.WebhookURL, cfg.Alerts.WebhookTimeout))
		log.Info("webhook alert sink enabled", "url", cfg.Alerts.WebhookURL)
	}
	if cfg.Alerts.KafkaEnabled() {
		kafkaSink := alert.NewKafkaSink(cfg.Alerts.KafkaBrokers, cfg.Alerts.KafkaTopic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka alert sink enabled", "brokers", cfg.Alerts.KafkaBrokers, "topic", cfg.Alerts.KafkaTopic)
	}

	dispatcher := alert.NewDispatcher(log, sinks...)
	dispatcher.FailureHook = mtr.RecordDispatchFailure

	rulesets := make(map[string]rules.Ruleset, len(monitorsFile.Monitors))
	for _, m := range monitorsFile.Monitors {
		rulesets[m.Name] = m.Ruleset()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range monitorsFile.Monitors {
		fetcher := fetch.NewRateFetcher(fetch.Source{
			URL:            m.Source.URL,
			Field:          m.Source.Field,
			TimestampField: m.Source.TimestampField,
			Tag:            m.Source.Tag,
			Timeout:        m.Source.Timeout,
		}, log)
		poller := NewPoller(m, fetcher, st, dispatcher, mtr, log)
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	limiter := router.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Max)
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	mux := router.SetupRoutes(st, rulesets, limiter, log)
	httpServer := httpx.NewServer(fmt.Sprintf(":%d", cfg.Port), mux, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	serverFailed := false
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
			serverFailed = true
		}
	}

	log.Info("shutting down")
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("poll loops failed", "error", err)
	}

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
	if serverFailed {
		os.Exit(1)
	}
}
