package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/config"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/line"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/mediastore"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/ocr"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/pipeline"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/providers/anthropicprovider"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/providers/openaiprovider"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/server"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/translate"
)

func serveCmd(debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mediastore.New(cfg.DataDir, cfg.RetentionWindow())
	if err != nil {
		return fmt.Errorf("opening media store: %w", err)
	}
	defer store.Close()

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		return err
	}

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	lineClient := line.NewClient(cfg.LineChannelSecret, cfg.LineChannelToken)
	translator := translate.NewClient()

	orch := pipeline.New(
		pipeline.Config{
			PublicBaseURL:   cfg.PublicBaseURL,
			TargetLanguage:  cfg.TargetLanguage,
			NativeLanguages: cfg.NativeLanguages,
			AdapterTimeout:  cfg.AdapterTimeout,
		},
		pipeline.Deps{
			Store:      store,
			Fetcher:    lineClient,
			Recognizer: ocr.NewClient(cfg.OCRAPIKey, cfg.OCRLanguage),
			Detector:   translator,
			Translator: translator,
			Summarizer: summarizer,
			Deliverer:  &pipeline.BusDeliverer{Bus: msgBus},
		},
	)

	worker := pipeline.NewWorker(msgBus, orch, cfg.PipelineTimeout)
	go worker.Run(ctx)
	go lineClient.RunSender(ctx, msgBus)
	go store.RunSweeper(ctx, cfg.SweepInterval)

	handlers := server.NewHandlers(lineClient, msgBus, store)

	slog.Info("starting service",
		slog.String("addr", cfg.ListenAddr),
		slog.String("provider", cfg.Provider),
		slog.Duration("retention", cfg.RetentionWindow()),
	)
	return server.Start(ctx, cfg.ListenAddr, handlers)
}

func buildSummarizer(cfg *config.Config) (pipeline.Summarizer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaiprovider.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case config.ProviderAnthropic:
		return anthropicprovider.NewProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
