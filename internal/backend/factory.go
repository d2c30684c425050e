package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bottega/internal/amqp"
	"bottega/internal/docstore"
	"bottega/internal/log"
	"bottega/internal/resilience"
	"bottega/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	retry  resilience.Config
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(log.FieldComponent, log.ComponentBackend),
		retry:  resilience.DefaultConfig(),
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the document store and, when configured, the AMQP
// publisher. The store must be reachable: opening it is retried with
// backoff and a final failure is returned. AMQP is optional and a
// connection failure only disables sync.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store docstore.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.openSQLite(ctx, config)
	case MemoryBackend:
		store, err = f.openMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &BackendResult{
		Store:      store,
		Repository: storage.NewRepository(store, f.logger),
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		} else {
			res.Publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) openSQLite(ctx context.Context, config Config) (docstore.Store, error) {
	retry := f.retry
	if config.InitRetries > 0 {
		retry.MaxRetries = config.InitRetries - 1
	}

	var store *docstore.SQLiteStore
	attempt := 0
	err := resilience.RetryWithBackoff(ctx, retry, func() error {
		attempt++
		s, err := docstore.OpenSQLite(config.SQLiteDBPath, f.logger)
		if err != nil {
			f.logger.Warn("Storage not ready",
				"db_path", config.SQLiteDBPath,
				log.FieldAttempt, attempt,
				log.FieldError, err)
			return err
		}
		store = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store after %d attempts: %w", attempt, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return store, nil
}

func (f *DefaultFactory) openMemory(config Config) (docstore.Store, error) {
	store := docstore.NewMemoryStore()
	if config.SeedFile != "" {
		if err := store.LoadSeed(config.SeedFile); err != nil {
			return nil, fmt.Errorf("load seed file: %w", err)
		}
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return store, nil
}
