package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mailtriage/internal/application/email"
	"mailtriage/internal/infrastructure/analysis"
	"mailtriage/internal/infrastructure/config"
	"mailtriage/internal/infrastructure/credential"
	"mailtriage/internal/infrastructure/gmail"
	"mailtriage/internal/infrastructure/imap"
	"mailtriage/internal/infrastructure/llm"
	"mailtriage/internal/infrastructure/logging"
	"mailtriage/internal/infrastructure/metrics"
	"mailtriage/internal/infrastructure/persistence/sqlite"
	"mailtriage/internal/infrastructure/pubsub"
	"mailtriage/internal/infrastructure/smtp"
	httpapi "mailtriage/internal/interfaces/http"
	pubsubHandler "mailtriage/internal/interfaces/pubsub"
	"mailtriage/internal/interfaces/worker"
)

func main() {
	if handled, err := runPasswordCommand(os.Args[1:]); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "mailtriage: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mailtriage: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lookup config.SecretLookup
	if store, err := credential.Open(); err == nil {
		lookup = store.Get
	}

	cfg, err := config.Load(lookup)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	repo, err := sqlite.NewEmailRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close repository", zap.Error(err))
		}
	}()

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	mailbox, sender, gmailClient, err := newMailbox(ctx, cfg, logger)
	if err != nil {
		return err
	}

	templates, err := email.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	recorder := metrics.NewRecorder()

	classifier := email.NewIntentClassifier(analyzer, logger,
		email.WithStrictAnalysis(cfg.AnalysisStrict),
		email.WithClassifierRecorder(recorder),
	)
	triageUC := email.NewTriageEmailUseCase(repo, mailbox, sender, classifier,
		email.NewReplyComposer(templates), logger,
		email.WithReplyOnNoMatch(cfg.ReplyOnNoMatch),
		email.WithRecorder(recorder),
	)

	runner := worker.NewRunner(triageUC, cfg.PollInterval, logger)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           httpapi.NewRouter(recorder.Registry, repo, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.PollInterval == 0 && !cfg.PushEnabled() {
		report, err := runner.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("triage cycle: %w", err)
		}
		logger.Info("Single cycle finished",
			zap.String("cycle_id", report.CycleID),
			zap.Int("processed", report.Processed),
			zap.Int("failed", report.Failed),
		)
		return nil
	}

	runner.Start(ctx)
	defer func() {
		stop()
		runner.Wait()
	}()

	if cfg.PushEnabled() {
		if err := gmailClient.EnableWatch(ctx, cfg.TopicName); err != nil {
			logger.Warn("Failed to enable watch", zap.Error(err))
		}

		subscriber, err := pubsub.NewSubscriber(ctx, cfg.GoogleCloudProject, cfg.SubscriptionID, logger)
		if err != nil {
			return fmt.Errorf("create subscriber: %w", err)
		}
		defer func() {
			if err := subscriber.Close(); err != nil {
				logger.Warn("Failed to close subscriber", zap.Error(err))
			}
		}()

		handler := pubsubHandler.NewHandler(runner, logger)
		go func() {
			logger.Info("Starting Pub/Sub listener")
			if err := subscriber.Listen(ctx, handler.HandleNotification); err != nil && ctx.Err() == nil {
				logger.Error("Pub/Sub listener stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("mailtriage is running",
		zap.String("backend", cfg.MailboxBackend),
		zap.String("analyzer", cfg.Analyzer),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("push", cfg.PushEnabled()),
	)

	<-ctx.Done()
	logger.Info("Shutting down gracefully")
	return nil
}

func newAnalyzer(cfg *config.Config, logger *zap.Logger) (email.TextAnalyzer, error) {
	if cfg.Analyzer == config.AnalyzerOpenAI {
		client, err := llm.NewClient(cfg.OpenAIAPIKey, cfg.ModelName, logger)
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		return client, nil
	}
	return analysis.NewLexicon(), nil
}

// newMailbox returns the Gmail client as third value when that backend is
// selected, for watch registration.
func newMailbox(ctx context.Context, cfg *config.Config, logger *zap.Logger) (email.Mailbox, email.ReplySender, *gmail.Client, error) {
	if cfg.MailboxBackend == config.BackendGmail {
		srv, err := gmail.NewService(ctx, cfg.GmailCredentials, cfg.GmailToken, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create Gmail service: %w", err)
		}
		client := gmail.NewClient(srv, cfg.EmailUser, logger)
		if err := client.InitLabels(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("initialize labels: %w", err)
		}
		return client, client, client, nil
	}

	mailbox := imap.NewClient(imap.Config{
		Host:     cfg.IMAPServer,
		Port:     cfg.IMAPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		TLS:      cfg.MailTLS,
	}, logger)
	sender := smtp.NewSender(smtp.Config{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		TLS:      cfg.MailTLS,
	}, logger)
	return mailbox, sender, nil, nil
}
