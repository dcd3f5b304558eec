package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ingresos/internal/storage"
	"ingresos/internal/store/kv"
	"ingresos/internal/store/local"
	"ingresos/internal/store/rest"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case LocalBackend:
		return f.createLocalBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case RestBackend:
		return f.createRestBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocalBackend(ctx context.Context, config Config) (*BackendResult, error) {
	files, err := kv.NewFile(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	adapter := local.New(files)
	if err := adapter.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize local backend: %w", err)
	}

	f.logger.Info("Initialized local backend", "data_directory", config.DataDirectory)

	return &BackendResult{
		Backend: adapter,
		Cleanup: nil, // File store flushes on every write
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	adapter := local.New(kv.NewMemory())
	if err := adapter.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Backend: adapter,
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if err := repo.Initialize(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createRestBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var opts []rest.Option
	if config.RestAPIKey != "" {
		opts = append(opts, rest.WithAPIKey(config.RestAPIKey))
	}

	client := rest.New(config.RestBaseURL, opts...)
	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach remote income service: %w", err)
	}

	f.logger.Info("Initialized REST backend", "base_url", config.RestBaseURL)

	return &BackendResult{
		Backend: client,
		Cleanup: nil,
	}, nil
}
