package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ent0n29/studychat/internal/chat"
	"github.com/ent0n29/studychat/internal/completion"
	"github.com/ent0n29/studychat/internal/config"
	"github.com/ent0n29/studychat/internal/httpapi"
	"github.com/ent0n29/studychat/internal/observability"
	"github.com/ent0n29/studychat/internal/prompt"
	"github.com/ent0n29/studychat/internal/transcript"
)

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Chat       *chat.Service
	Store      transcript.Store
	Completion completion.Client
	Metrics    *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*BuildResult, error) {
	if log == nil {
		log = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registry)

	source, err := prompt.ParseMemorySource(cfg.MemorySource)
	if err != nil {
		return nil, err
	}

	store, err := transcript.NewStore(ctx, cfg.DatabaseURL, cfg.DatabaseAutoMigrate, log)
	if err != nil {
		return nil, fmt.Errorf("transcript store init failed: %w", err)
	}

	client, err := completion.NewClient(completion.Config{
		Mode:        cfg.CompletionProvider,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("completion client init failed: %w", err)
	}

	composer := prompt.NewComposer(prompt.Config{
		Memory:      store,
		Source:      source,
		ReplyBudget: cfg.ReplyBudget,
		Logger:      log,
		OnMemory: func(source prompt.MemorySource, outcome string) {
			metrics.MemoryInjections.WithLabelValues(string(source), outcome).Inc()
		},
	})

	service := chat.NewService(chat.Config{
		Composer:          composer,
		Completion:        client,
		Store:             store,
		Metrics:           metrics,
		Logger:            log,
		CompletionTimeout: cfg.CompletionTimeout,
		StoreTimeout:      cfg.StoreTimeout,
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Chat:               service,
		Store:              store,
		CompletionProvider: client.Provider(),
		Metrics:            metrics,
		Logger:             log,
	})

	log.Info("study chat wired",
		"store", store.Mode(),
		"completion", client.Provider(),
		"memory_source", string(source),
		"reply_budget", cfg.ReplyBudget,
	)

	cleanup := func() error {
		var errs []string
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Chat:       service,
		Store:      store,
		Completion: client,
		Metrics:    metrics,
		Cleanup:    cleanup,
	}, nil
}
