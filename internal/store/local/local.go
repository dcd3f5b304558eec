// Package local implements the income store over a flat key-value blob
// store: one serialized array for the category registry, one serialized grid
// per year. This mirrors the browser-local persistence layout the hosted
// variants replaced, so data files stay interchangeable.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ingresos/internal/core"
	"ingresos/internal/store"
	"ingresos/internal/store/kv"
)

// schemaVersion is stamped into every persisted blob. Bump on layout changes.
const schemaVersion = 1

// Typed key builder for the persisted blobs.
const (
	categoriesKey   = "finance_income_categories"
	matrixKeyPrefix = "finance_income_matrix_"
)

func matrixKey(year int) string {
	return fmt.Sprintf("%s%d", matrixKeyPrefix, year)
}

type (
	// storedCategory keeps timestamps as RFC 3339 strings in the blob; they
	// are parsed back to time values on every load.
	storedCategory struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Order     int    `json:"order"`
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}

	categoriesBlob struct {
		Version    int              `json:"version"`
		Categories []storedCategory `json:"categories"`
	}

	matrixBlob struct {
		Version int         `json:"version"`
		Cells   core.Matrix `json:"cells"`
	}
)

// Adapter implements store.Adapter over a kv.Store with read-through caches
// for the registry and each loaded year.
type Adapter struct {
	mu          sync.Mutex
	kv          kv.Store
	cats        []core.Category // nil until first load
	matrices    map[int]core.Matrix
	initialized bool
	now         func() time.Time
}

var _ store.Adapter = (*Adapter)(nil)

func New(kvStore kv.Store) *Adapter {
	return &Adapter{
		kv:       kvStore,
		matrices: make(map[int]core.Matrix),
		now:      time.Now,
	}
}

// Initialize loads the registry and seeds demo data when the store is empty.
// Safe to call more than once.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	cats, err := a.loadCategories()
	if err != nil {
		return store.WrapError(store.CodeInit, "initialize local store", err)
	}
	if len(cats) == 0 {
		if err := a.seed(); err != nil {
			return store.WrapError(store.CodeInit, "seed local store", err)
		}
	}
	a.initialized = true
	return nil
}

func (a *Adapter) ListCategories(ctx context.Context) ([]core.Category, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cats, err := a.loadCategories()
	if err != nil {
		return nil, store.WrapError(store.CodeLoadCategories, "list categories", err)
	}
	out := make([]core.Category, len(cats))
	copy(out, cats)
	return out, nil
}

func (a *Adapter) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	cats, err := a.loadCategories()
	if err != nil {
		return core.Category{}, store.WrapError(store.CodeLoadCategories, "create category", err)
	}
	maxOrder := -1
	for _, c := range cats {
		if c.Order > maxOrder {
			maxOrder = c.Order
		}
	}
	now := a.now().UTC()
	cat := core.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Order:     maxOrder + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.saveCategories(append(cats, cat)); err != nil {
		return core.Category{}, store.WrapError(store.CodeSaveCategories, "create category", err)
	}
	return cat, nil
}

func (a *Adapter) RenameCategory(ctx context.Context, id, name string) error {
	name = core.NormalizeName(name)
	if name == "" {
		return core.ErrEmptyName
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	cats, err := a.loadCategories()
	if err != nil {
		return store.WrapError(store.CodeLoadCategories, "rename category", err)
	}
	idx := -1
	for i, c := range cats {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrCategoryNotFound
	}
	cats[idx].Name = name
	cats[idx].UpdatedAt = a.now().UTC()
	if err := a.saveCategories(cats); err != nil {
		return store.WrapError(store.CodeSaveCategories, "rename category", err)
	}
	return nil
}

// DeleteCategory removes the category and then sweeps every persisted year
// for grid rows keyed by its id. The two steps are deliberately not atomic;
// a crash in between leaves orphaned rows the next delete sweep ignores.
func (a *Adapter) DeleteCategory(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cats, err := a.loadCategories()
	if err != nil {
		return store.WrapError(store.CodeLoadCategories, "delete category", err)
	}
	kept := cats[:0:0]
	for _, c := range cats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(cats) {
		return core.ErrCategoryNotFound
	}
	if err := a.saveCategories(kept); err != nil {
		return store.WrapError(store.CodeSaveCategories, "delete category", err)
	}

	years, err := a.persistedYears()
	if err != nil {
		return store.WrapError(store.CodeDeleteCategory, "sweep matrices", err)
	}
	for _, year := range years {
		m, err := a.loadMatrix(year)
		if err != nil {
			return store.WrapError(store.CodeLoadMatrix, fmt.Sprintf("sweep matrix %d", year), err)
		}
		if _, ok := m[id]; !ok {
			continue
		}
		delete(m, id)
		if err := a.saveMatrix(year, m); err != nil {
			return store.WrapError(store.CodeSaveMatrix, fmt.Sprintf("sweep matrix %d", year), err)
		}
	}
	return nil
}

func (a *Adapter) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cats, err := a.loadCategories()
	if err != nil {
		return store.WrapError(store.CodeLoadCategories, "reorder categories", err)
	}
	byID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownOrderID, id)
		}
		if _, dup := seen[id]; dup {
			return core.ErrIncompleteOrder
		}
		seen[id] = struct{}{}
	}
	if len(orderedIDs) != len(cats) {
		return core.ErrIncompleteOrder
	}
	now := a.now().UTC()
	reordered := make([]core.Category, 0, len(orderedIDs))
	for pos, id := range orderedIDs {
		c := byID[id]
		c.Order = pos
		c.UpdatedAt = now
		reordered = append(reordered, c)
	}
	if err := a.saveCategories(reordered); err != nil {
		return store.WrapError(store.CodeSaveCategories, "reorder categories", err)
	}
	return nil
}

func (a *Adapter) GetMatrix(ctx context.Context, year int) (core.Matrix, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.loadMatrix(year)
	if err != nil {
		return nil, store.WrapError(store.CodeLoadMatrix, fmt.Sprintf("get matrix %d", year), err)
	}
	return m.Clone(), nil
}

func (a *Adapter) SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.loadMatrix(year)
	if err != nil {
		return store.WrapError(store.CodeLoadMatrix, "set cell", err)
	}
	m.SetCell(categoryID, month, value)
	if err := a.saveMatrix(year, m); err != nil {
		return store.WrapError(store.CodeSetCell, "set cell", err)
	}
	return nil
}

func (a *Adapter) BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.loadMatrix(year)
	if err != nil {
		return store.WrapError(store.CodeLoadMatrix, "bulk set row", err)
	}
	for month, value := range valuesByMonth {
		// Lenient by contract: sparse paste data carries junk month keys.
		if !core.ValidMonth(month) {
			continue
		}
		m.SetCell(categoryID, month, value)
	}
	if err := a.saveMatrix(year, m); err != nil {
		return store.WrapError(store.CodeBulkSetRow, "bulk set row", err)
	}
	return nil
}

func (a *Adapter) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.kv.Delete(categoriesKey); err != nil {
		return store.WrapError(store.CodeReset, "reset categories", err)
	}
	years, err := a.persistedYears()
	if err != nil {
		return store.WrapError(store.CodeReset, "reset matrices", err)
	}
	for _, year := range years {
		if err := a.kv.Delete(matrixKey(year)); err != nil {
			return store.WrapError(store.CodeReset, "reset matrices", err)
		}
	}
	a.cats = nil
	a.matrices = make(map[int]core.Matrix)
	a.initialized = false
	return nil
}

// --- persistence, caller holds a.mu ---

func (a *Adapter) loadCategories() ([]core.Category, error) {
	if a.cats != nil {
		return a.cats, nil
	}
	data, ok, err := a.kv.Get(categoriesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.cats = []core.Category{}
		return a.cats, nil
	}
	var blob categoriesBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode categories blob: %w", err)
	}
	cats := make([]core.Category, 0, len(blob.Categories))
	for _, sc := range blob.Categories {
		createdAt, err := time.Parse(time.RFC3339, sc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse createdAt of %s: %w", sc.ID, err)
		}
		updatedAt, err := time.Parse(time.RFC3339, sc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updatedAt of %s: %w", sc.ID, err)
		}
		cats = append(cats, core.Category{
			ID:        sc.ID,
			Name:      sc.Name,
			Order:     sc.Order,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Order < cats[j].Order })
	a.cats = cats
	return cats, nil
}

func (a *Adapter) saveCategories(cats []core.Category) error {
	sort.Slice(cats, func(i, j int) bool { return cats[i].Order < cats[j].Order })
	blob := categoriesBlob{Version: schemaVersion}
	for _, c := range cats {
		blob.Categories = append(blob.Categories, storedCategory{
			ID:        c.ID,
			Name:      c.Name,
			Order:     c.Order,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode categories blob: %w", err)
	}
	if err := a.kv.Set(categoriesKey, data); err != nil {
		return err
	}
	a.cats = cats
	return nil
}

func (a *Adapter) loadMatrix(year int) (core.Matrix, error) {
	if m, ok := a.matrices[year]; ok {
		return m, nil
	}
	data, ok, err := a.kv.Get(matrixKey(year))
	if err != nil {
		return nil, err
	}
	m := core.Matrix{}
	if ok {
		var blob matrixBlob
		if err := json.Unmarshal(data, &blob); err != nil {
			return nil, fmt.Errorf("decode matrix blob %d: %w", year, err)
		}
		if blob.Cells != nil {
			m = blob.Cells
		}
	}
	a.matrices[year] = m
	return m, nil
}

func (a *Adapter) saveMatrix(year int, m core.Matrix) error {
	data, err := json.Marshal(matrixBlob{Version: schemaVersion, Cells: m})
	if err != nil {
		return fmt.Errorf("encode matrix blob %d: %w", year, err)
	}
	if err := a.kv.Set(matrixKey(year), data); err != nil {
		return err
	}
	a.matrices[year] = m
	return nil
}

func (a *Adapter) persistedYears() ([]int, error) {
	keys, err := a.kv.Keys(matrixKeyPrefix)
	if err != nil {
		return nil, err
	}
	var years []int
	for _, k := range keys {
		var year int
		if _, err := fmt.Sscanf(k, matrixKeyPrefix+"%d", &year); err == nil {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}
