package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chama_admin/internal/infra/config"
	"chama_admin/internal/infra/httpapi"
	"chama_admin/internal/infra/logger"
	"chama_admin/internal/infra/scheduler"
	"chama_admin/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, the expiry scheduler and the Telegram bot",
		Long: `Run the admin HTTP API, the cron expiry check and, when TELEGRAM_TOKEN
is set, the Telegram admin bot.

Examples:
  chama serve
  chama serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageDriver,
		"timezone":    cfg.TimeZone,
		"admin_user":  cfg.AdminUserID,
	}).Info("Configuration loaded")

	st, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("could not open storage: %w", err)
	}
	defer st.close()
	mainLogger.Info("Storage opened")

	bot, err := newBot(cfg, true)
	if err != nil {
		return err
	}
	svc := newServices(cfg, st, notifierFor(cfg, bot))

	expiryScheduler := scheduler.NewExpiryScheduler(svc.cycles, logger.Log.WithField("service", "scheduler"),
		cfg.CronSpecExpiryCheck, cfg.Location)
	if err := expiryScheduler.Start(); err != nil {
		return err
	}
	defer expiryScheduler.Stop()

	// catch up on anything that expired while we were down
	expiryScheduler.RunOnce(ctx)

	if bot != nil {
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, telegram.NewAdminHandlers(svc.cycles, cfg.AdminTelegramID,
			cfg.AdminUserID, cfg.Currency, botLogger))
		go bot.Start()
		defer bot.Stop()
		mainLogger.Info("Telegram bot started")
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN not set, Telegram bot disabled")
	}

	if cfg.AdminAPIToken == "" {
		mainLogger.Warn("ADMIN_API_TOKEN not set, admin API routes will reject every request")
	}
	if cfg.PaymentCallbackSecret == "" {
		mainLogger.Warn("PAYMENT_CALLBACK_SECRET not set, payment callbacks are accepted without authentication")
	}
	handler := httpapi.NewHandler(svc.cycles, svc.members, svc.contributions, svc.payments, svc.withdrawals, logger.Component("httpapi"))
	router := httpapi.NewRouter(handler, httpapi.Options{
		AdminAPIToken:         cfg.AdminAPIToken,
		AdminUserID:           cfg.AdminUserID,
		PaymentCallbackSecret: cfg.PaymentCallbackSecret,
		Release:               cfg.IsProduction(),
	}, logger.Component("http"))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		mainLogger.Info("Shutting down application...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLogger.Info("Application shut down gracefully")
	return nil
}
