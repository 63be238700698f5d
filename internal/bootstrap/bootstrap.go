package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/policyscope/policyscope/internal/config"
	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/core/usecase"
	"github.com/policyscope/policyscope/internal/infrastructure/chunking"
	"github.com/policyscope/policyscope/internal/infrastructure/embedding"
	"github.com/policyscope/policyscope/internal/infrastructure/extraction"
	"github.com/policyscope/policyscope/internal/infrastructure/extractor"
	"github.com/policyscope/policyscope/internal/infrastructure/extractor/pdf"
	"github.com/policyscope/policyscope/internal/infrastructure/extractor/plaintext"
	"github.com/policyscope/policyscope/internal/infrastructure/llm/anthropic"
	"github.com/policyscope/policyscope/internal/infrastructure/llm/openai"
	"github.com/policyscope/policyscope/internal/infrastructure/questions"
	"github.com/policyscope/policyscope/internal/infrastructure/queue/nats"
	"github.com/policyscope/policyscope/internal/infrastructure/repository/postgres"
	"github.com/policyscope/policyscope/internal/infrastructure/resilience"
	"github.com/policyscope/policyscope/internal/infrastructure/storage/localfs"
	"github.com/policyscope/policyscope/internal/infrastructure/structuring"
	"github.com/policyscope/policyscope/internal/observability/logging"
	"github.com/policyscope/policyscope/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue       ports.MessageQueue
	Policies    ports.PolicyRepository
	Comparisons ports.ComparisonRepository

	IngestUC  ports.PolicyIngestor
	ProcessUC ports.PolicyProcessor
	CompareUC ports.PolicyComparator
	AskUC     ports.QuestionAnswerer
	ReaderUC  ports.PolicyReader

	Pipeline      *metrics.Pipeline
	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	log := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(log)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	policyRepo := postgres.NewPolicyRepository(db)
	if err := policyRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	comparisonRepo := postgres.NewComparisonRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	pipeline := metrics.NewPipeline(service)

	anthropicClient := anthropic.New(cfg.AnthropicURL, cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicTimeout)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedClient := openai.NewResilient(
		openai.New(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAITimeout),
		executor,
	)
	embedCache := embedding.NewCache(cfg.EmbeddingCachePath, cfg.EmbeddingCacheTTL)
	embedService := embedding.NewService(embedClient, embedCache, embedding.Budget{
		CharsPerToken:    cfg.EmbedCharsPerToken,
		TokenBudget:      cfg.EmbedTokenBudget,
		RetryTokenBudget: cfg.EmbedRetryTokenBudget,
	}, pipeline, logging.ForComponent(log, "embedding"))

	extractionQueue := extraction.NewQueue(anthropicClient, extraction.Config{
		Service:         service,
		QueueSize:       cfg.ExtractionQueueSize,
		TaskInterval:    cfg.ExtractionTaskInterval,
		RetryDelay:      cfg.ExtractionRetryDelay,
		BatchSize:       cfg.ExtractionBatchSize,
		BatchDelay:      cfg.ExtractionBatchDelay,
		AnswerMaxTokens: cfg.AnswerMaxTokens,
		RetryMaxTokens:  cfg.RetryMaxTokens,
	}, pipeline, logging.ForComponent(log, "extraction"))
	extractionQueue.Start(ctx)

	catalog, err := questions.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}

	structurer := structuring.New(structuring.DefaultConfig())
	textExtractor := extractor.NewDispatcher(plaintext.NewExtractor(storage), pdf.NewExtractor(storage))
	splitter := chunking.NewSplitter(cfg.ChunkMinLen, cfg.ChunkMaxLen)

	ingestUC := usecase.NewIngestPolicyUseCase(policyRepo, storage, queue)
	processUC := usecase.NewProcessPolicyUseCase(policyRepo, textExtractor, structurer, structurer)
	askUC := usecase.NewAskUseCase(policyRepo, embedService, splitter, anthropicClient)
	compareUC := usecase.NewCompareUseCase(
		policyRepo,
		comparisonRepo,
		catalog,
		extractionQueue,
		extraction.NewAnalyzer(anthropicClient),
		anthropicClient,
		pipeline,
		logging.ForComponent(log, "comparison"),
		usecase.CompareConfig{
			Service:            service,
			ChapterConcurrency: cfg.CompareChapterConcurrency,
		},
	)
	readerUC := usecase.NewReadPolicyUseCase(policyRepo)

	return &App{
		Config: cfg,
		Log:    log,

		Queue:       queue,
		Policies:    policyRepo,
		Comparisons: comparisonRepo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		CompareUC: compareUC,
		AskUC:     askUC,
		ReaderUC:  readerUC,

		Pipeline:      pipeline,
		HTTPMetrics:   metrics.NewHTTPServerMetrics(service),
		WorkerMetrics: metrics.NewWorkerMetrics(service),

		closeFn: func() {
			extractionQueue.Close()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
