package bootstrap

import (
	"context"
	"fmt"

	"github.com/dkoval/receiptwise/internal/config"
	"github.com/dkoval/receiptwise/internal/core/ports"
	"github.com/dkoval/receiptwise/internal/core/usecase"
	"github.com/dkoval/receiptwise/internal/infrastructure/llm/ollama"
	"github.com/dkoval/receiptwise/internal/infrastructure/ocr/textract"
	natsqueue "github.com/dkoval/receiptwise/internal/infrastructure/queue/nats"
	"github.com/dkoval/receiptwise/internal/infrastructure/repository/postgres"
	"github.com/dkoval/receiptwise/internal/infrastructure/resilience"
	"github.com/dkoval/receiptwise/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.ReceiptRepository
	IngestUC  ports.ReceiptIngestor
	ProcessUC *usecase.ProcessReceiptUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewReceiptRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		Executor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load extraction rules: %w", err)
	}

	analyzer := textract.New(cfg.OCRBaseURL, storage, executor)

	var classifier ports.ItemClassifier
	if cfg.ClassifierEnabled {
		classifier = ollama.New(cfg.OllamaURL, cfg.OllamaModel)
	}

	ingestUC := usecase.NewIngestReceiptUseCase(repo, storage, queue)
	processUC := usecase.NewProcessReceiptUseCase(repo, analyzer, classifier, rules)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
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
