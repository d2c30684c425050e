package backend

import (
	"context"

	"bottega/internal/docstore"
	"bottega/internal/services"
	"bottega/internal/storage"
)

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// BackendResult holds the opened store, the typed repository over it and,
// when the broker is reachable, the sync publisher.
type BackendResult struct {
	Store      docstore.Store
	Repository *storage.Repository
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher services.SyncPublisher
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config selects a store and the optional record sync broker.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	InitRetries  int

	// SeedFile is a YAML file loaded into the memory store at startup.
	SeedFile string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
