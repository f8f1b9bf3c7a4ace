package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"parcel_monitor_bot/internal/app"
	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
	"parcel_monitor_bot/internal/infra/config"
	idb "parcel_monitor_bot/internal/infra/database"
	"parcel_monitor_bot/internal/infra/logger"
	"parcel_monitor_bot/internal/infra/platform"
	"parcel_monitor_bot/internal/infra/scheduler"
	itg "parcel_monitor_bot/internal/infra/telegram"
)

const sweepTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.WithFields(logrus.Fields{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"store_backend": cfg.StoreBackend,
		"poll_spec":     cfg.PollSpec,
	}).Info("Configuration loaded")

	// State store: Postgres in production, in-memory for local runs.
	var studentRepo student.Repository
	var snapshotRepo parcel.SnapshotRepository
	if cfg.StoreBackend == config.StoreBackendPostgres {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to database: %v", err)
		}
		defer db.Close()
		if err := idb.RunMigrations(db); err != nil {
			log.Fatalf("FATAL: Could not apply migrations: %v", err)
		}
		log.Info("Database connection established, migrations applied")

		studentRepo = idb.NewPostgresStudentRepository(db)
		snapshotRepo = idb.NewPostgresSnapshotRepository(db)
	} else {
		log.Warn("Using in-memory store: tracked students will not survive a restart")
		studentRepo = idb.NewMemoryStudentRepository()
		snapshotRepo = idb.NewMemorySnapshotRepository()
	}

	platformClient := platform.NewClient(platform.Config{
		BaseURL: cfg.PlatformBaseURL,
		Timeout: cfg.PlatformTimeout,
	}, log.WithField("component", "platform_client"))

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}

	telegramClient := itg.NewTelebotAdapter(bot)
	notifier := app.NewTelegramNotifier(telegramClient, cfg.NotifyAttempts, log.WithField("component", "notifier"))
	monitorService := app.NewMonitorService(
		studentRepo,
		snapshotRepo,
		platformClient,
		notifier,
		log.WithField("component", "monitor"),
		cfg.MonitorWorkers,
	)
	registryService := app.NewRegistryService(studentRepo, snapshotRepo, log.WithField("component", "registry"))

	monitorScheduler := scheduler.NewMonitorScheduler(
		monitorService,
		log.WithField("component", "scheduler"),
		cfg.PollSpec,
		sweepTimeout,
	)
	if err := monitorScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start monitor scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	itg.RegisterBotCommands(ctx, bot, registryService, log.WithField("component", "bot_commands"))
	log.Info("Bot command handlers registered")

	log.Info("Application setup complete. Bot and scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	monitorScheduler.Stop() // waits for an in-flight sweep to finish
	bot.Stop()
	log.Info("Application shut down gracefully.")
}
