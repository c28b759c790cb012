// Package backend builds the ledger store and event publisher selected by
// configuration.
package backend

import (
	"context"

	"fina/internal/ledger"
)

// CleanupFunc releases the resources behind a Result.
type CleanupFunc func() error

// Result carries the store and an optional publisher. Publisher is nil when
// events are disabled or the broker was unreachable at startup.
type Result struct {
	Store     ledger.Store
	Publisher ledger.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Empty AMQPURL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
