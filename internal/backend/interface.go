package backend

import (
	"context"

	"ingresos/internal/store"
)

// Backend is the full persistence surface the application runs against.
type Backend interface {
	store.Adapter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Local / memory specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// REST specific
	RestBaseURL string
	RestAPIKey  string
}

// BackendType represents the type of backend
type BackendType string

const (
	LocalBackend  BackendType = "local"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RestBackend   BackendType = "rest"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, MemoryBackend, SQLiteBackend, RestBackend:
		return true
	default:
		return false
	}
}
