package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ingresos/internal/core"
)

// fakeAdapter is an in-memory store.Adapter that records mutations.
type fakeAdapter struct {
	categories []core.Category
	matrices   map[int]core.Matrix

	setCellCalls int
	bulkRowCalls int
	resetCalls   int

	failWith error
}

func newFakeAdapter(cats ...core.Category) *fakeAdapter {
	return &fakeAdapter{
		categories: cats,
		matrices:   make(map[int]core.Matrix),
	}
}

func (f *fakeAdapter) Initialize(ctx context.Context) error { return nil }

func (f *fakeAdapter) ListCategories(ctx context.Context) ([]core.Category, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]core.Category(nil), f.categories...), nil
}

func (f *fakeAdapter) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	if f.failWith != nil {
		return core.Category{}, f.failWith
	}
	cat := core.Category{ID: name + "-id", Name: name, Order: len(f.categories)}
	f.categories = append(f.categories, cat)
	return cat, nil
}

func (f *fakeAdapter) RenameCategory(ctx context.Context, id, name string) error {
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories[i].Name = name
			return nil
		}
	}
	return core.ErrCategoryNotFound
}

func (f *fakeAdapter) DeleteCategory(ctx context.Context, id string) error {
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return core.ErrCategoryNotFound
}

func (f *fakeAdapter) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	return nil
}

func (f *fakeAdapter) GetMatrix(ctx context.Context, year int) (core.Matrix, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	m, ok := f.matrices[year]
	if !ok {
		return core.Matrix{}, nil
	}
	return m.Clone(), nil
}

func (f *fakeAdapter) SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error {
	f.setCellCalls++
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	m, ok := f.matrices[year]
	if !ok {
		m = core.Matrix{}
		f.matrices[year] = m
	}
	m.SetCell(categoryID, month, value)
	return nil
}

func (f *fakeAdapter) BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error {
	f.bulkRowCalls++
	m, ok := f.matrices[year]
	if !ok {
		m = core.Matrix{}
		f.matrices[year] = m
	}
	for month, value := range valuesByMonth {
		if !core.ValidMonth(month) {
			continue
		}
		m.SetCell(categoryID, month, value)
	}
	return nil
}

func (f *fakeAdapter) Reset(ctx context.Context) error {
	f.resetCalls++
	f.categories = nil
	f.matrices = make(map[int]core.Matrix)
	return nil
}

func TestCreateCategoryValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewIncomeService(newFakeAdapter(core.Category{ID: "c1", Name: "Sueldo"}), nil)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", core.ErrEmptyName},
		{"whitespace only", "   ", core.ErrEmptyName},
		{"too long", strings.Repeat("a", 150), core.ErrNameTooLong},
		{"duplicate", "Sueldo", core.ErrDuplicateName},
		{"duplicate case-insensitive", "  sueldo ", core.ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCategory(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !core.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateCategoryTrimsName(t *testing.T) {
	ctx := context.Background()
	svc := NewIncomeService(newFakeAdapter(), nil)

	cat, err := svc.CreateCategory(ctx, "  Arriendos  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.Name != "Arriendos" {
		t.Errorf("expected trimmed name, got %q", cat.Name)
	}
}

func TestRenameCategoryAllowsKeepingOwnName(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter(
		core.Category{ID: "c1", Name: "Sueldo"},
		core.Category{ID: "c2", Name: "Turnos"},
	)
	svc := NewIncomeService(adapter, nil)

	if err := svc.RenameCategory(ctx, "c1", "sueldo"); err != nil {
		t.Errorf("renaming to own name should pass, got %v", err)
	}
	if err := svc.RenameCategory(ctx, "c1", "Turnos"); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestSetCellRejectsInvalidMonth(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	svc := NewIncomeService(adapter, nil)

	for _, month := range []int{0, 13, -1} {
		if err := svc.SetCell(ctx, 2024, "c1", month, 100); !errors.Is(err, core.ErrInvalidMonth) {
			t.Errorf("month %d: expected ErrInvalidMonth, got %v", month, err)
		}
	}
	if adapter.setCellCalls != 0 {
		t.Errorf("store should not be touched on invalid month, got %d calls", adapter.setCellCalls)
	}
}

func TestPasteRow(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	svc := NewIncomeService(adapter, nil)

	n, err := svc.PasteRow(ctx, 2024, "c1", "$500.000\t$1.234\t\t$300.000", 1)
	if err != nil {
		t.Fatalf("paste row: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 cells written, got %d", n)
	}

	m := adapter.matrices[2024]
	if got := m.Cell("c1", 1); got != 500000 {
		t.Errorf("month 1: expected 500000, got %d", got)
	}
	if got := m.Cell("c1", 2); got != 1234 {
		t.Errorf("month 2: expected 1234, got %d", got)
	}
	if got := m.Cell("c1", 3); got != 0 {
		t.Errorf("month 3: blank cell should stay zero, got %d", got)
	}
	if got := m.Cell("c1", 4); got != 300000 {
		t.Errorf("month 4: expected 300000, got %d", got)
	}
}

func TestPasteRowInvalidStartMonth(t *testing.T) {
	svc := NewIncomeService(newFakeAdapter(), nil)

	if _, err := svc.PasteRow(context.Background(), 2024, "c1", "100", 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestPasteMatrix(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter(
		core.Category{ID: "c1", Name: "Sueldo", Order: 0},
		core.Category{ID: "c2", Name: "Turnos", Order: 1},
	)
	svc := NewIncomeService(adapter, nil)

	n, err := svc.PasteMatrix(ctx, 2024, "100\t200\n300\t400", 0)
	if err != nil {
		t.Fatalf("paste matrix: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows written, got %d", n)
	}

	m := adapter.matrices[2024]
	if got := m.Cell("c1", 2); got != 200 {
		t.Errorf("c1 month 2: expected 200, got %d", got)
	}
	if got := m.Cell("c2", 1); got != 300 {
		t.Errorf("c2 month 1: expected 300, got %d", got)
	}
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter(core.Category{ID: "c1", Name: "Sueldo"})
	adapter.matrices[2024] = core.Matrix{
		"c1": {1: 500000, 2: 520000},
	}
	svc := NewIncomeService(adapter, nil)

	report, err := svc.Totals(ctx, 2024)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if report.GrandTotal != 1020000 {
		t.Errorf("expected grand total 1020000, got %d", report.GrandTotal)
	}
	if report.MonthlyTotals[1] != 500000 {
		t.Errorf("expected month 1 total 500000, got %d", report.MonthlyTotals[1])
	}
	if report.CategoryTotals["c1"] != 1020000 {
		t.Errorf("expected category total 1020000, got %d", report.CategoryTotals["c1"])
	}
}

func TestTotalsPropagatesStoreFailure(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.failWith = errors.New("disk fell off")
	svc := NewIncomeService(adapter, nil)

	if _, err := svc.Totals(context.Background(), 2024); err == nil {
		t.Fatal("expected store failure to propagate")
	}
}

func TestReset(t *testing.T) {
	adapter := newFakeAdapter(core.Category{ID: "c1", Name: "Sueldo"})
	svc := NewIncomeService(adapter, nil)

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if adapter.resetCalls != 1 {
		t.Errorf("expected 1 reset call, got %d", adapter.resetCalls)
	}
}
