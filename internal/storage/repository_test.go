package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ingresos/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ingresos.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInitializeSeedsEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 5 {
		t.Fatalf("seeded %d categories, want 5", len(cats))
	}

	if err := repo.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	cats, _ = repo.ListCategories(ctx)
	if len(cats) != 5 {
		t.Fatalf("re-initialize duplicated the seed")
	}
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cat, err := repo.CreateCategory(ctx, "  Sueldo ")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if cat.Name != "Sueldo" || cat.Order != 0 {
		t.Fatalf("created = %+v", cat)
	}

	second, _ := repo.CreateCategory(ctx, "Turnos")
	if second.Order != 1 {
		t.Fatalf("second order = %d", second.Order)
	}

	if err := repo.RenameCategory(ctx, cat.ID, "Salario"); err != nil {
		t.Fatalf("RenameCategory: %v", err)
	}
	if err := repo.RenameCategory(ctx, "missing", "X"); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("rename missing: %v", err)
	}

	cats, _ := repo.ListCategories(ctx)
	if cats[0].Name != "Salario" {
		t.Fatalf("list after rename = %+v", cats)
	}
	if cats[0].CreatedAt.IsZero() || cats[0].UpdatedAt.Before(cats[0].CreatedAt) {
		t.Fatalf("timestamps = %+v", cats[0])
	}
}

func TestReorder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c1, _ := repo.CreateCategory(ctx, "Sueldo")
	c2, _ := repo.CreateCategory(ctx, "Turnos")

	if err := repo.ReorderCategories(ctx, []string{c2.ID, c1.ID}); err != nil {
		t.Fatalf("ReorderCategories: %v", err)
	}
	cats, _ := repo.ListCategories(ctx)
	if cats[0].ID != c2.ID || cats[1].ID != c1.ID {
		t.Fatalf("order after reorder = %+v", cats)
	}

	if err := repo.ReorderCategories(ctx, []string{c1.ID}); !errors.Is(err, core.ErrIncompleteOrder) {
		t.Fatalf("partial reorder: %v", err)
	}
	if err := repo.ReorderCategories(ctx, []string{c1.ID, "nope"}); !errors.Is(err, core.ErrUnknownOrderID) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestCellsAndCascadeDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	keep, _ := repo.CreateCategory(ctx, "Sueldo")
	gone, _ := repo.CreateCategory(ctx, "Turnos")

	if err := repo.SetCell(ctx, 2024, keep.ID, 1, 500000); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := repo.SetCell(ctx, 2023, gone.ID, 2, 100); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := repo.SetCell(ctx, 2024, gone.ID, 2, 200); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := repo.SetCell(ctx, 2024, keep.ID, 13, 1); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("month 13: %v", err)
	}

	if err := repo.DeleteCategory(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	for _, year := range []int{2023, 2024} {
		m, err := repo.GetMatrix(ctx, year)
		if err != nil {
			t.Fatalf("GetMatrix %d: %v", year, err)
		}
		if m.Cell(gone.ID, 2) != 0 {
			t.Fatalf("year %d still holds deleted rows", year)
		}
	}
	m, _ := repo.GetMatrix(ctx, 2024)
	if m.Cell(keep.ID, 1) != 500000 {
		t.Fatalf("surviving cell = %d", m.Cell(keep.ID, 1))
	}

	if err := repo.DeleteCategory(ctx, gone.ID); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestSetCellZeroClearsRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat, _ := repo.CreateCategory(ctx, "Sueldo")

	if err := repo.SetCell(ctx, 2024, cat.ID, 3, 100); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := repo.SetCell(ctx, 2024, cat.ID, 3, -7); err != nil {
		t.Fatalf("SetCell negative: %v", err)
	}
	m, _ := repo.GetMatrix(ctx, 2024)
	if len(m) != 0 {
		t.Fatalf("negative write should clear the cell: %v", m)
	}
}

func TestBulkSetRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat, _ := repo.CreateCategory(ctx, "Sueldo")

	err := repo.BulkSetRow(ctx, 2024, cat.ID, map[int]int64{5: 100, 13: 999})
	if err != nil {
		t.Fatalf("BulkSetRow: %v", err)
	}
	m, _ := repo.GetMatrix(ctx, 2024)
	if m.Cell(cat.ID, 5) != 100 || len(m[cat.ID]) != 1 {
		t.Fatalf("row = %v", m[cat.ID])
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat, _ := repo.CreateCategory(ctx, "Sueldo")
	_ = repo.SetCell(ctx, 2024, cat.ID, 1, 100)

	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	cats, _ := repo.ListCategories(ctx)
	if len(cats) != 0 {
		t.Fatalf("categories after reset = %+v", cats)
	}
	m, _ := repo.GetMatrix(ctx, 2024)
	if len(m) != 0 {
		t.Fatalf("cells after reset = %v", m)
	}
}
