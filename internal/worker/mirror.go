// Package worker mirrors income data from the primary store into a local
// SQLite archive, driven by AMQP events with a periodic reconcile as backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ingresos/internal/amqp"
	"ingresos/internal/core"
	applog "ingresos/internal/log"
	"ingresos/internal/storage"
	"ingresos/internal/store"
)

// MirrorWorker replays income events from the primary store into the SQLite
// archive. Cell updates apply directly from the event payload; structural
// changes to the registry trigger a category sync from the source.
type MirrorWorker struct {
	source  store.Adapter
	archive *storage.SQLiteRepository
}

func NewMirrorWorker(source store.Adapter, archive *storage.SQLiteRepository) *MirrorWorker {
	return &MirrorWorker{
		source:  source,
		archive: archive,
	}
}

// HandleIncomeEvent processes a single income event from AMQP.
func (w *MirrorWorker) HandleIncomeEvent(ctx context.Context, msg *amqp.IncomeEventMessage) error {
	slog.InfoContext(ctx, "Processing income event",
		applog.FieldEventType, msg.Type,
		applog.FieldYear, msg.Year,
		applog.FieldCategoryID, msg.CategoryID)

	switch msg.Type {
	case amqp.EventIncomeUpdated:
		if msg.Month != 0 {
			// Single cell update carries everything we need.
			if err := w.archive.SetCell(ctx, msg.Year, msg.CategoryID, msg.Month, msg.Value); err != nil {
				return fmt.Errorf("mirror cell update: %w", err)
			}
			return nil
		}
		// Bulk row update: the event names the row but not the values.
		return w.mirrorRow(ctx, msg.Year, msg.CategoryID)

	case amqp.EventCategoryCreated, amqp.EventCategoryRenamed,
		amqp.EventCategoryDeleted, amqp.EventCategoriesReordered:
		return w.syncCategories(ctx)

	case amqp.EventStoreReset:
		if err := w.archive.Reset(ctx); err != nil {
			return fmt.Errorf("mirror reset: %w", err)
		}
		return nil

	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", applog.FieldEventType, msg.Type)
		return nil
	}
}

// Reconcile pulls the full registry and the given year's grid from the source
// and overwrites the archive. It is the backup path for lost AMQP messages.
func (w *MirrorWorker) Reconcile(ctx context.Context, year int) error {
	start := time.Now()

	if err := w.syncCategories(ctx); err != nil {
		return err
	}

	matrix, err := w.source.GetMatrix(ctx, year)
	if err != nil {
		return fmt.Errorf("load source matrix: %w", err)
	}

	cats, err := w.archive.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list archive categories: %w", err)
	}

	for _, cat := range cats {
		if err := w.archive.BulkSetRow(ctx, year, cat.ID, fullRow(matrix, cat.ID)); err != nil {
			return fmt.Errorf("mirror row for %s: %w", cat.ID, err)
		}
	}

	slog.InfoContext(ctx, "Reconcile completed",
		applog.FieldYear, year,
		"categories", len(cats),
		"duration", time.Since(start).Round(time.Millisecond))

	return nil
}

func (w *MirrorWorker) syncCategories(ctx context.Context) error {
	cats, err := w.source.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load source categories: %w", err)
	}
	if err := w.archive.SyncCategories(ctx, cats); err != nil {
		return fmt.Errorf("sync categories to archive: %w", err)
	}
	return nil
}

func (w *MirrorWorker) mirrorRow(ctx context.Context, year int, categoryID string) error {
	matrix, err := w.source.GetMatrix(ctx, year)
	if err != nil {
		return fmt.Errorf("load source matrix: %w", err)
	}
	if err := w.archive.BulkSetRow(ctx, year, categoryID, fullRow(matrix, categoryID)); err != nil {
		return fmt.Errorf("mirror row: %w", err)
	}
	return nil
}

// fullRow returns all twelve months for one category, with explicit zeros so
// stale archive cells get cleared.
func fullRow(m core.Matrix, categoryID string) map[int]int64 {
	row := make(map[int]int64, 12)
	for month := 1; month <= 12; month++ {
		row[month] = m.Cell(categoryID, month)
	}
	return row
}
