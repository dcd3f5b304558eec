// Package store defines the persistence ports the income service is built
// against, plus the error wrapper every adapter failure travels in.
package store

import (
	"context"

	"ingresos/internal/core"
)

// Ports for outbound adapters.
type (
	// CategoryStore manages the ordered category registry.
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, name string) (core.Category, error)
		RenameCategory(ctx context.Context, id, name string) error
		// DeleteCategory removes the category and every grid entry keyed by
		// its id, across all years.
		DeleteCategory(ctx context.Context, id string) error
		// ReorderCategories reassigns each id's order to its position in the
		// supplied sequence.
		ReorderCategories(ctx context.Context, orderedIDs []string) error
	}

	// MatrixStore manages the per-year income grids.
	MatrixStore interface {
		// GetMatrix returns an independent snapshot of one year's grid.
		GetMatrix(ctx context.Context, year int) (core.Matrix, error)
		SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error
		// BulkSetRow applies several month writes for one category. Entries
		// with out-of-range month keys are silently ignored.
		BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error
	}

	// Lifecycle covers adapter setup and teardown.
	Lifecycle interface {
		// Initialize is idempotent and seeds demo data when the store is empty.
		Initialize(ctx context.Context) error
		// Reset destroys all categories and every year's grid.
		Reset(ctx context.Context) error
	}

	// Adapter is the full persistence surface consumed by the service layer.
	Adapter interface {
		CategoryStore
		MatrixStore
		Lifecycle
	}
)
