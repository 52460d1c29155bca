package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"batch-dispatch-service/internal/alerts"
	"batch-dispatch-service/internal/api"
	"batch-dispatch-service/internal/batch"
	"batch-dispatch-service/internal/config"
	"batch-dispatch-service/internal/db"
	"batch-dispatch-service/internal/kafka"
	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/internal/notification"
	"batch-dispatch-service/internal/providers"
	"batch-dispatch-service/internal/utils"
	"batch-dispatch-service/pkg/email"
	"batch-dispatch-service/pkg/sms"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database when configured
	var dbConn *db.DB
	if cfg.DB.DSN != "" {
		dbConn, err = db.New(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		defer dbConn.Close()
		if err := utils.Retry(ctx, logger, 5, 2*time.Second, func() error { return dbConn.Ping(ctx) }); err != nil {
			log.Fatalf("Database not reachable: %v", err)
		}
	}

	// Alert persistence, rules and notification settings
	var (
		alertStore alerts.Store
		settings   notification.SettingsSource
		ruleSource *db.RuleSource
		rules      = models.DefaultAlertRules()
	)
	if dbConn != nil {
		alertStore = db.NewAlertStateStore(dbConn)
		settings = db.NewSettingsSource(dbConn)
		ruleSource = db.NewRuleSource(dbConn, logger)
		if stored, err := ruleSource.AlertRules(ctx); err != nil {
			logger.Errorf("Failed to load alert rules, using defaults: %v", err)
		} else {
			rules = stored
		}
	} else {
		fileStore, err := alerts.NewFileStore(cfg.Alerts.StateFile)
		if err != nil {
			log.Fatalf("Alert state file unusable: %v", err)
		}
		alertStore = fileStore
		settings = notification.StaticSettings{
			Preferences: models.NotificationPreferences{
				Email:       len(cfg.Alerts.Emails) > 0,
				ChatChannel: len(cfg.Alerts.Chats) > 0,
			},
			Destinations: models.Destinations{
				Emails: cfg.Alerts.Emails,
				Chats:  cfg.Alerts.Chats,
			},
		}
	}

	// Channel senders
	hub := providers.NewPushHub(logger)
	senders := notification.Senders{Push: hub}
	if cfg.Email.SMTPServer != "" {
		senders.Email = providers.NewEmailSender(email.Server{
			Host:     cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		})
	}
	router := providers.ChatRouter{Webhook: providers.NewWebhookSender(nil)}
	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.RateLimit)
		if err != nil {
			logger.Errorf("Telegram disabled: %v", err)
		} else {
			router.Telegram = tg
		}
	}
	senders.Chat = router

	notifier := notification.New(senders, logger.WithField("component", "notification"), cfg.API.MonitoringURL)

	// Alert lifecycle
	managerOpts := []alerts.Option{
		alerts.WithRetention(cfg.Alerts.Retention),
		alerts.WithNotifier(notifier.Callback(ctx, settings)),
	}
	if ruleSource != nil {
		managerOpts = append(managerOpts, alerts.WithRuleSource(ruleSource, cfg.Alerts.RuleRefresh))
	}
	manager := alerts.NewManager(ctx, alertStore, rules, logger.WithField("component", "alerts"), managerOpts...)
	if err := manager.Start(cfg.Alerts.SweepSchedule); err != nil {
		log.Fatalf("Invalid alert sweep schedule: %v", err)
	}
	defer manager.Stop()

	// Batch dispatch
	store := batch.NewStore(logger.WithField("component", "batch-store"))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Run(ctx, time.Minute)
	}()

	smsClient := sms.New(cfg.SMS.ProviderURL, cfg.SMS.Token, nil)
	dispatcher := batch.NewDispatcher(ctx, store, providers.NewSMSSender(smsClient), logger.WithField("component", "dispatcher"), batch.Options{
		Delay:       cfg.Dispatch.Delay,
		SendTimeout: cfg.Dispatch.SendTimeout,
		Retention:   cfg.Dispatch.Retention,
	})

	// Initialize Kafka consumer
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, manager, logger)
		consumer.Start(ctx, &wg)
		defer consumer.Close()
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	deps := api.Deps{
		Dispatcher: dispatcher,
		Store:      store,
		Alerts:     manager,
		Hub:        hub,
	}
	if dbConn != nil {
		deps.Subscriptions = dbConn
	}
	srv := &http.Server{
		Addr:    cfg.API.Port,
		Handler: api.NewRouter(deps, logger, cfg.API.BasePath),
	}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	dispatcher.Wait()
	wg.Wait()
}
