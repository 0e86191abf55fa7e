package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/panchang-bot/internal/client"
	"github.com/kjstillabower/panchang-bot/internal/config"
	httphandler "github.com/kjstillabower/panchang-bot/internal/http"
	"github.com/kjstillabower/panchang-bot/internal/lifecycle"
	"github.com/kjstillabower/panchang-bot/internal/models"
	"github.com/kjstillabower/panchang-bot/internal/observability"
	"github.com/kjstillabower/panchang-bot/internal/panchang"
	"github.com/kjstillabower/panchang-bot/internal/service"
	"github.com/kjstillabower/panchang-bot/internal/telegram"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if !cfg.WebhookConfigured() {
		logger.Warn("WEBHOOK_URL is still the placeholder; webhook will not be registered",
			zap.String("webhook_url", cfg.WebhookURL))
	}

	astroClient, err := client.NewAstroClient(cfg.AstroAPIKey, cfg.AstroAPIURL, cfg.AstroAPITimeout)
	if err != nil {
		logger.Fatal("astro client", zap.Error(err))
	}
	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramAPITimeout)
	if err != nil {
		logger.Fatal("telegram bot", zap.Error(err))
	}

	location := buildLocation(cfg.Location)
	panchangService := service.NewPanchangService(astroClient, location, logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*cfg.TelegramAPITimeout)
	me, err := bot.GetMe(startCtx)
	if err != nil {
		logger.Warn("getMe failed; commands addressed by @username are accepted for any bot", zap.Error(err))
	} else {
		logger.Info("bot identity", zap.String("username", me.Username), zap.Int64("id", me.ID))
	}
	if cfg.WebhookConfigured() {
		if err := bot.SetWebhook(startCtx, cfg.WebhookEndpoint(), cfg.WebhookSecret, true); err != nil {
			logger.Error("setWebhook failed; updates will not arrive until it succeeds", zap.Error(err))
		} else {
			logger.Info("webhook registered", zap.String("path", "/webhook/{token}"))
		}
	}
	startCancel()

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		StartTime:            time.Now(),
	}
	handler := httphandler.NewHandler(panchangService, bot, httphandler.WebhookConfig{
		Token:       cfg.TelegramBotToken,
		Secret:      cfg.WebhookSecret,
		BotUsername: me.Username,
		DedupeSize:  cfg.DedupeSize,
		DedupeTTL:   cfg.DedupeTTL,
	}, healthConfig, logger)

	observability.RegisterRateLimitGauges(cfg.OverloadWindow)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("location", location.Name),
			zap.String("zone", location.Zone.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight turns", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx); err != nil {
		logger.Warn("in-flight turns not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	logger.Info("shutdown complete", zap.Duration("drained_for", lifecycle.DrainingFor()))
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

func buildLocation(lc config.LocationConfig) models.Location {
	return models.Location{
		Name:                lc.Name,
		Latitude:            lc.Latitude,
		Longitude:           lc.Longitude,
		TimezoneOffsetHours: lc.TimezoneOffset,
		Zone:                panchang.LoadZone(lc.TimezoneName, lc.TimezoneOffset),
		ZoneLabel:           lc.ZoneLabel,
	}
}
