package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/masking"
	"financial_digest/internal/infra/config"
	idb "financial_digest/internal/infra/database"
	"financial_digest/internal/infra/inbox"
	"financial_digest/internal/infra/insights"
	"financial_digest/internal/infra/logger"
	"financial_digest/internal/infra/mailer"
	"financial_digest/internal/infra/render"
	"financial_digest/internal/infra/scheduler"
	"financial_digest/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	base := logrus.NewEntry(logger.Log)
	mainLogger := logger.Component("main")
	mainLogger.WithField("environment", cfg.Environment).Info("Financial digest service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	advisorRepo := idb.NewPostgresAdvisorRepository(db)
	historyRepo := idb.NewPostgresDigestRepository(db)

	rules := masking.DefaultRules()
	for _, field := range cfg.MaskExtraEmailFields {
		if rules, err = rules.With(masking.Rule{Pattern: field, Strategy: masking.MaskEmail}); err != nil {
			mainLogger.WithError(err).Fatal("Invalid MASK_EXTRA_EMAIL_FIELDS entry")
		}
	}

	renderer, err := render.NewDigestRenderer()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load digest templates")
	}

	deps := app.DigestServiceDeps{
		Source:   inbox.NewJSONSource(cfg.InboxDir, base),
		Advisors: advisorRepo,
		History:  historyRepo,
		Masker:   masking.New(rules),
		Renderer: renderer,
	}
	if cfg.AIInsightsEnabled {
		deps.Insights = insights.NewFallbackGenerator(base)
		mainLogger.Info("Insight enrichment enabled.")
	}
	if cfg.MailEnabled() {
		deps.Mailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}, base)
		mainLogger.WithField("smtp_server", cfg.SMTPServer).Info("SMTP delivery enabled.")
	} else {
		mainLogger.Warn("SMTP is not configured; digests will be built and stored but not sent.")
	}

	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{
						"message":   c.Text(),
						"sender_id": c.Sender().ID,
						"chat_id":   c.Chat().ID,
					})
				}
				entry.Error("Telebot error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		sender := telegram.NewTelebotAdapter(bot)
		deps.Notifier = telegram.NewUrgentNotifier(sender)
		if cfg.OpsTelegramID != 0 {
			deps.Reporter = telegram.NewOpsReporter(sender, cfg.OpsTelegramID)
		}
	}

	digestService := app.NewDigestService(deps, cfg.DigestConcurrency, base)

	digestScheduler := scheduler.NewDigestScheduler(digestService, base, cfg.CronSpecDailyDigest)
	if err := digestScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start digest scheduler")
	}

	if bot != nil {
		adminService := app.NewAdminService(advisorRepo, cfg.AdminTelegramID)
		botLogger := logger.Component("telegram")
		telegram.RegisterAdminHandlers(ctx, bot, adminService, botLogger)
		telegram.RegisterBotCommands(ctx, bot, adminService, digestService, botLogger)
		mainLogger.Info("Telegram command handlers registered.")

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	}

	mainLogger.Info("Application setup complete.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	digestScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
