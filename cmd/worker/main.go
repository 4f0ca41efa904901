package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/openai"
	"recipe-importer/internal/core/ai/openrouter"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/queue"
	"recipe-importer/internal/pkg/common"
)

// jobTimeout bounds one import end to end, including every model call.
const jobTimeout = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	aiProvider, err := newProvider(cfg)
	if err != nil {
		common.LogFatal("failed to initialize AI provider", zap.Error(err))
	}
	defer aiProvider.Close()

	common.LogInfo("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.String("ai_provider", aiProvider.Name()),
		zap.String("model", cfg.AI.Model),
		zap.String("tiny_model", cfg.AI.TinyModel),
		zap.String("vision_model", cfg.AI.VisionModel),
	)

	cacheManager := cache.NewManager(cfg)
	defer cacheManager.Close()

	structurer := pipeline.NewStructurer(
		aiProvider,
		cacheManager,
		cfg.AI.Model,
		cfg.AI.TinyModel,
		cfg.AI.VisionModel,
		cfg.AI.MaxTokens,
		cfg.Pipeline.MaxTextChars,
	)
	importPipeline := pipeline.New(cfg, structurer)
	catalog := ingredient.NewCatalog(ingredient.NewMemoryStore(), cfg.Pipeline.FuzzyMatchThreshold)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := queue.NewClient(ctx, cfg.Redis.URL)
	cancel()
	if err != nil {
		common.LogFatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	jobQueue := queue.NewQueue(redisClient, cfg.Pipeline.ResultTTL, cfg.Pipeline.InflightTTL)

	worker := queue.NewWorker(jobQueue, func(ctx context.Context, job *queue.ImportJob) (*pipeline.ImportedRecipe, error) {
		recipe, err := importPipeline.Import(ctx, pipeline.ImportRequest{
			Type:   job.Type,
			URL:    job.URL,
			Text:   job.Text,
			Images: job.Images,
		})
		if err != nil {
			return nil, err
		}
		catalog.ResolveMentions(ctx, recipe)
		return recipe, nil
	}, jobTimeout)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		common.LogError("worker stopped with error", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("worker exited")
}

// newProvider selects the configured LLM provider.
func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.AI.Provider {
	case "openrouter":
		if cfg.OpenRouter.APIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
		}
		common.LogInfo("using OpenRouter",
			zap.String("api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		)
		return openrouter.NewClient(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.Timeout), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
		common.LogInfo("using OpenAI",
			zap.String("api_key", config.MaskAPIKey(cfg.OpenAI.APIKey)),
		)
		return openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}
