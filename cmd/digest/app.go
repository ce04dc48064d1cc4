package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"

	"MarketDigest/internal/analyzer"
	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/fallback"
	"MarketDigest/internal/notifier"
	"MarketDigest/internal/oracle"
	"MarketDigest/internal/pipeline"
	"MarketDigest/internal/recorder"
	"MarketDigest/internal/scheduler"
)

type app struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	telegram *notifier.TelegramNotifier
	recorder recorder.Recorder
}

func setupLogging(level string) {
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(level),
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
		Writer:     &log.ConsoleWriter{ColorOutput: true},
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, noEmail bool) (*app, error) {
	ds := cfg.DataSource
	gw := collector.NewEastmoneyGateway(ds.QuoteURL, ds.HistoryURL, cfg.Proxy, ds.Timeout,
		collector.WithHeaders(ds.UserAgent, ds.Referer),
		collector.WithRateLimit(ds.RateLimit),
	)
	log.Info().Str("gateway", gw.Name()).Msg("data source ready")
	col := collector.NewCollector(gw, ds.HistoryDays, ds.TechnicalDays, ds.Retries, ds.RetryBackoff)

	oc, err := oracle.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init oracle: %w", err)
	}
	log.Info().Str("oracle", oc.Name()).Dur("timeout", cfg.Oracle.Timeout).Msg("oracle ready")
	an := analyzer.New(oc, fallback.New(), cfg.Oracle.Timeout)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var mailer pipeline.Mailer
	if !noEmail {
		if !cfg.EmailConfigured() {
			log.Warn().Msg("email sender, auth code or receiver missing, reports will only be saved")
		}
		mailer = notifier.NewEmailSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.Sender, cfg.Email.AuthCode, cfg.Email.Receiver, cfg.Email.FromName)
	}

	a := &app{
		cfg:      cfg,
		runner:   pipeline.NewRunner(cfg, col, an, mailer, rec),
		recorder: rec,
	}
	if cfg.TelegramConfigured() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.runner.Alerts = a.telegram
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func runOnce(ctx context.Context, cfgPath string, noEmail bool) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, noEmail)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runner.Run(ctx, pipeline.TriggerManual)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "报告已生成: %s\n", run.ReportPath)
	if !run.Delivered {
		fmt.Fprintf(os.Stdout, "邮件未发送: %s\n", run.DeliveryNote)
	}
	return nil
}

func serve(ctx context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	log.Info().Msg("MarketDigest starting...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var sender scheduler.Sender
	if a.telegram != nil {
		sender = a.telegram
	}
	sched := scheduler.NewScheduler(ctx, a.runner, sender, a.recorder, cfg.Schedule.SkipWeekends)
	if err := sched.RegisterAll(cfg.Schedule.ReportCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, generating report now")
		go func() {
			if _, err := sched.RunNow(pipeline.TriggerManual); err != nil {
				log.Error().Err(err).Msg("startup report")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.ReportCron).Msg("MarketDigest is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	return nil
}
