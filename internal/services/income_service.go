package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ingresos/internal/amqp"
	"ingresos/internal/core"
	"ingresos/internal/store"
)

// IncomeService orchestrates income matrix operations across the configured
// store adapter and AMQP. Mutations hit the store first; event publishing is
// best-effort and never fails the request.
type IncomeService struct {
	store      store.Adapter
	amqpClient *amqp.Client
}

func NewIncomeService(adapter store.Adapter, amqpClient *amqp.Client) *IncomeService {
	return &IncomeService{
		store:      adapter,
		amqpClient: amqpClient,
	}
}

// TotalsReport is the aggregated view served for one year.
type TotalsReport struct {
	Year           int              `json:"year"`
	MonthlyTotals  map[int]int64    `json:"monthlyTotals"`
	CategoryTotals map[string]int64 `json:"categoryTotals"`
	GrandTotal     int64            `json:"grandTotal"`
	Stats          core.Stats       `json:"statistics"`
}

func (s *IncomeService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// CreateCategory validates the name before touching the store. Names are
// unique case-insensitively after trimming.
func (s *IncomeService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	trimmed, err := s.validateName(ctx, name, "")
	if err != nil {
		return core.Category{}, err
	}

	cat, err := s.store.CreateCategory(ctx, trimmed)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	msg := amqp.NewIncomeEvent(amqp.EventCategoryCreated)
	msg.CategoryID = cat.ID
	msg.CategoryName = cat.Name
	s.publish(ctx, msg)

	return cat, nil
}

func (s *IncomeService) RenameCategory(ctx context.Context, id, name string) error {
	trimmed, err := s.validateName(ctx, name, id)
	if err != nil {
		return err
	}

	if err := s.store.RenameCategory(ctx, id, trimmed); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}

	msg := amqp.NewIncomeEvent(amqp.EventCategoryRenamed)
	msg.CategoryID = id
	msg.CategoryName = trimmed
	s.publish(ctx, msg)

	return nil
}

// DeleteCategory removes the category and its income rows across all years.
func (s *IncomeService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	msg := amqp.NewIncomeEvent(amqp.EventCategoryDeleted)
	msg.CategoryID = id
	s.publish(ctx, msg)

	return nil
}

func (s *IncomeService) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	if err := s.store.ReorderCategories(ctx, orderedIDs); err != nil {
		return fmt.Errorf("reorder categories: %w", err)
	}

	s.publish(ctx, amqp.NewIncomeEvent(amqp.EventCategoriesReordered))
	return nil
}

func (s *IncomeService) GetMatrix(ctx context.Context, year int) (core.Matrix, error) {
	return s.store.GetMatrix(ctx, year)
}

func (s *IncomeService) SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}

	if err := s.store.SetCell(ctx, year, categoryID, month, value); err != nil {
		return fmt.Errorf("set cell: %w", err)
	}

	msg := amqp.NewIncomeEvent(amqp.EventIncomeUpdated)
	msg.Year = year
	msg.CategoryID = categoryID
	msg.Month = month
	msg.Value = value
	s.publish(ctx, msg)

	return nil
}

func (s *IncomeService) BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error {
	if err := s.store.BulkSetRow(ctx, year, categoryID, valuesByMonth); err != nil {
		return fmt.Errorf("bulk set row: %w", err)
	}

	msg := amqp.NewIncomeEvent(amqp.EventIncomeUpdated)
	msg.Year = year
	msg.CategoryID = categoryID
	s.publish(ctx, msg)

	return nil
}

// PasteRow parses a tab-separated clipboard row and writes it into one
// category's row starting at startMonth. Returns how many cells were written.
func (s *IncomeService) PasteRow(ctx context.Context, year int, categoryID, pastedText string, startMonth int) (int, error) {
	if !core.ValidMonth(startMonth) {
		return 0, core.ErrInvalidMonth
	}

	values := core.IngestRow(pastedText, startMonth)
	if len(values) == 0 {
		return 0, nil
	}

	if err := s.BulkSetRow(ctx, year, categoryID, values); err != nil {
		return 0, err
	}
	return len(values), nil
}

// PasteMatrix parses a multi-line clipboard block and maps each line onto the
// registered categories starting at startCategoryIndex. Returns how many
// category rows were written.
func (s *IncomeService) PasteMatrix(ctx context.Context, year int, pastedBlock string, startCategoryIndex int) (int, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}

	rows := core.IngestMatrix(pastedBlock, startCategoryIndex, cats)
	for categoryID, values := range rows {
		if err := s.BulkSetRow(ctx, year, categoryID, values); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// Totals aggregates one year's grid into monthly, per-category, and grand
// totals plus derived statistics.
func (s *IncomeService) Totals(ctx context.Context, year int) (TotalsReport, error) {
	matrix, err := s.store.GetMatrix(ctx, year)
	if err != nil {
		return TotalsReport{}, fmt.Errorf("get matrix: %w", err)
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return TotalsReport{}, fmt.Errorf("list categories: %w", err)
	}

	return TotalsReport{
		Year:           year,
		MonthlyTotals:  core.MonthlyTotals(matrix),
		CategoryTotals: core.CategoryTotals(matrix),
		GrandTotal:     core.GrandTotal(matrix),
		Stats:          core.Statistics(matrix, cats),
	}, nil
}

// Reset wipes every category and every year's grid.
func (s *IncomeService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	s.publish(ctx, amqp.NewIncomeEvent(amqp.EventStoreReset))
	return nil
}

func (s *IncomeService) validateName(ctx context.Context, name, selfID string) (string, error) {
	trimmed := core.NormalizeName(name)
	if trimmed == "" {
		return "", core.ErrEmptyName
	}
	if len(trimmed) > core.MaxNameLength {
		return "", core.ErrNameTooLong
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}

	lowered := strings.ToLower(trimmed)
	for _, c := range cats {
		if c.ID != selfID && strings.ToLower(c.Name) == lowered {
			return "", core.ErrDuplicateName
		}
	}
	return trimmed, nil
}

func (s *IncomeService) publish(ctx context.Context, msg *amqp.IncomeEventMessage) {
	if s.amqpClient == nil {
		return
	}

	if err := s.amqpClient.PublishIncomeEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish income event",
			"type", msg.Type, "error", err)
		// Don't fail the request - the store write succeeded
	}
}

// Close closes the AMQP connection if one was configured.
func (s *IncomeService) Close() error {
	if s.amqpClient == nil {
		return nil
	}
	if err := s.amqpClient.Close(); err != nil {
		return fmt.Errorf("close amqp client: %w", err)
	}
	return nil
}
