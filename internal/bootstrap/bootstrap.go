package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/config"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
	"github.com/kirillkom/dataset-recommender/internal/core/usecase"
	rediscache "github.com/kirillkom/dataset-recommender/internal/infrastructure/cache/redis"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/llm/openai"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/resilience"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/tabular"
	"github.com/kirillkom/dataset-recommender/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	Queue       ports.MessageQueue
	Datasets    *usecase.DatasetService
	ProcessUC   ports.DatasetProcessor
	Recommender *usecase.RecommendationService
	History     *usecase.HistoryService
	Search      *usecase.SearchService
	Usage       ports.UsageLimiter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	workerMetrics := metrics.NewWorkerMetrics("worker")

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	datasetRepo := postgres.NewDatasetRepository(db)
	historyRepo := postgres.NewQueryHistoryRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	redisClient, err := rediscache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	schemaCache := rediscache.NewSchemaCache(redisClient, time.Duration(cfg.SchemaCacheTTLSeconds)*time.Second, logger)
	usage := rediscache.NewUsageLimiter(redisClient, cfg.FreeDailySearches, cfg.ProUserIDs)

	queueExecutor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled: true,
		Logger:         logger,
		OnStateChange:  httpMetrics.BreakerStateChanged,
	})
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		HandlerTimeout:     time.Duration(cfg.WorkerProcessTimeoutSec) * time.Second,
		ResilienceExecutor: queueExecutor,
		Logger:             logger,
	})
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	parser := tabular.NewParser()
	recommender := NewRecommender(cfg, logger, httpMetrics, httpMetrics.BreakerStateChanged)

	datasets := usecase.NewDatasetService(datasetRepo, storage, queue, parser, schemaCache, cfg.MaxUploadBytes)
	processUC := usecase.NewProcessDatasetUseCase(datasetRepo, storage, parser, schemaCache, workerMetrics)
	history := usecase.NewHistoryService(historyRepo)
	search := usecase.NewSearchService(datasets, history, recommender, usage, httpMetrics, logger, cfg.MatchTopK)

	return &App{
		Config: cfg,
		Logger: logger,

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

		Queue:       queue,
		Datasets:    datasets,
		ProcessUC:   processUC,
		Recommender: recommender,
		History:     history,
		Search:      search,
		Usage:       usage,

		closeFn: func() {
			queue.Close()
			_ = redisClient.Close()
			_ = db.Close()
		},
	}, nil
}

// NewRecommender builds the recommendation service without any storage, so
// the MCP server can use it on its own. The LLM strategy is chosen only when
// an API key is configured.
func NewRecommender(
	cfg config.Config,
	logger *slog.Logger,
	m ports.RecommendationMetrics,
	breakerObserver resilience.StateChangeFunc,
) *usecase.RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	var advisor ports.LLMAdvisor
	if cfg.LLMEnabled() {
		executor := resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: cfg.LLMRetryMaxAttempts,
			BreakerEnabled:   cfg.LLMBreakerEnabled,
			Logger:           logger,
			OnStateChange:    breakerObserver,
		})
		client := openai.New(openai.Config{
			BaseURL:  cfg.LLMBaseURL,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			Timeout:  time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
			Executor: executor,
		})
		advisor = openai.NewAdvisor(client)
		logger.Info("recommendation strategy selected", "strategy", usecase.StrategyLLM, "model", cfg.LLMModel)
	} else {
		logger.Info("recommendation strategy selected", "strategy", usecase.StrategyHeuristic)
	}

	strategy := usecase.NewRecommendationStrategy(advisor, usecase.NewHeuristicStrategy(nil))
	return usecase.NewRecommendationService(strategy, logger, m)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
