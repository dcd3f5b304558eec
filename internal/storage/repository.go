// Package storage implements the income store on SQLite, the hosted-backend
// variant of the persistence adapter.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"ingresos/internal/core"
	"ingresos/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Adapter = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// migrateSchema brings the embedded schema up to the latest version. It runs
// on its own connection: migrate takes ownership of the handle it is given
// and closes it, which must not touch the repository's pool.
func migrateSchema(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}

	upErr := m.Up()
	srcErr, dbErr := m.Close()

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration connection: %w", dbErr)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Initialize seeds the demo registry when the categories table is empty.
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count)
	if err != nil {
		return store.WrapError(store.CodeInit, "count categories", err)
	}
	if count > 0 {
		return nil
	}
	now := r.now().UTC().Format(time.RFC3339)
	for i, name := range []string{"Sueldo", "Turnos", "UMed", "Arriendos", "Dividendos"} {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO categories (id, name, ord, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), name, i, now, now)
		if err != nil {
			return store.WrapError(store.CodeInit, "seed categories", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, ord, created_at, updated_at FROM categories ORDER BY ord ASC`)
	if err != nil {
		return nil, store.WrapError(store.CodeLoadCategories, "list categories", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Order, &createdAt, &updatedAt); err != nil {
			return nil, store.WrapError(store.CodeLoadCategories, "scan category", err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, store.WrapError(store.CodeLoadCategories, "parse created_at", err)
		}
		if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, store.WrapError(store.CodeLoadCategories, "parse updated_at", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(store.CodeLoadCategories, "iterate categories", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	now := r.now().UTC()
	cat := core.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(ord) + 1, 0) FROM categories`).Scan(&cat.Order)
	if err != nil {
		return core.Category{}, store.WrapError(store.CodeCreateCategory, "next order", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, ord, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Order, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return core.Category{}, store.WrapError(store.CodeCreateCategory, "insert category", err)
	}
	return cat, nil
}

func (r *SQLiteRepository) RenameCategory(ctx context.Context, id, name string) error {
	name = core.NormalizeName(name)
	if name == "" {
		return core.ErrEmptyName
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`,
		name, r.now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return store.WrapError(store.CodeRenameCategory, "update category", err)
	}
	return requireOneRow(res, store.CodeRenameCategory)
}

// DeleteCategory removes the category and its grid rows across all years in
// one transaction; SQLite gives this adapter the atomic cascade the
// key-value variant cannot.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WrapError(store.CodeDeleteCategory, "begin delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return store.WrapError(store.CodeDeleteCategory, "delete category", err)
	}
	if err := requireOneRow(res, store.CodeDeleteCategory); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM income_cells WHERE category_id = ?`, id); err != nil {
		return store.WrapError(store.CodeDeleteCategory, "cascade cells", err)
	}
	if err := tx.Commit(); err != nil {
		return store.WrapError(store.CodeDeleteCategory, "commit delete", err)
	}
	return nil
}

func (r *SQLiteRepository) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	cats, err := r.ListCategories(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		known[c.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := known[id]; !ok {
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WrapError(store.CodeReorder, "begin reorder", err)
	}
	defer tx.Rollback()

	now := r.now().UTC().Format(time.RFC3339)
	for pos, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET ord = ?, updated_at = ? WHERE id = ?`, pos, now, id); err != nil {
			return store.WrapError(store.CodeReorder, "update order", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return store.WrapError(store.CodeReorder, "commit reorder", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMatrix(ctx context.Context, year int) (core.Matrix, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, month, amount FROM income_cells WHERE year = ?`, year)
	if err != nil {
		return nil, store.WrapError(store.CodeLoadMatrix, "query cells", err)
	}
	defer rows.Close()

	m := core.Matrix{}
	for rows.Next() {
		var categoryID string
		var month int
		var amount int64
		if err := rows.Scan(&categoryID, &month, &amount); err != nil {
			return nil, store.WrapError(store.CodeLoadMatrix, "scan cell", err)
		}
		m.SetCell(categoryID, month, amount)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(store.CodeLoadMatrix, "iterate cells", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	if value < 0 {
		value = 0
	}
	if value == 0 {
		// Zero cells are absent rows; the matrix stays sparse.
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM income_cells WHERE year = ? AND category_id = ? AND month = ?`,
			year, categoryID, month)
		if err != nil {
			return store.WrapError(store.CodeSetCell, "clear cell", err)
		}
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income_cells (year, category_id, month, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT (year, category_id, month) DO UPDATE SET amount = excluded.amount`,
		year, categoryID, month, value)
	if err != nil {
		return store.WrapError(store.CodeSetCell, "upsert cell", err)
	}
	return nil
}

func (r *SQLiteRepository) BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WrapError(store.CodeBulkSetRow, "begin bulk row", err)
	}
	defer tx.Rollback()

	for month, value := range valuesByMonth {
		if !core.ValidMonth(month) {
			continue
		}
		if value < 0 {
			value = 0
		}
		if value == 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM income_cells WHERE year = ? AND category_id = ? AND month = ?`,
				year, categoryID, month); err != nil {
				return store.WrapError(store.CodeBulkSetRow, "clear cell", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO income_cells (year, category_id, month, amount) VALUES (?, ?, ?, ?)
			 ON CONFLICT (year, category_id, month) DO UPDATE SET amount = excluded.amount`,
			year, categoryID, month, value); err != nil {
			return store.WrapError(store.CodeBulkSetRow, "upsert cell", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return store.WrapError(store.CodeBulkSetRow, "commit bulk row", err)
	}
	return nil
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WrapError(store.CodeReset, "begin reset", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM income_cells`); err != nil {
		return store.WrapError(store.CodeReset, "clear cells", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return store.WrapError(store.CodeReset, "clear categories", err)
	}
	if err := tx.Commit(); err != nil {
		return store.WrapError(store.CodeReset, "commit reset", err)
	}
	return nil
}

// SyncCategories replaces the category registry with the supplied snapshot,
// keeping ids stable so mirrored income rows stay attached. Categories absent
// from the snapshot are removed along with their cells. Used by the mirror
// worker; the interactive path goes through CreateCategory and friends.
func (r *SQLiteRepository) SyncCategories(ctx context.Context, cats []core.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WrapError(store.CodeSaveCategories, "begin sync", err)
	}
	defer tx.Rollback()

	keep := make([]any, 0, len(cats))
	for _, c := range cats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, ord, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, ord = excluded.ord, updated_at = excluded.updated_at`,
			c.ID, c.Name, c.Order,
			c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return store.WrapError(store.CodeSaveCategories, "upsert category", err)
		}
		keep = append(keep, c.ID)
	}

	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM income_cells`); err != nil {
			return store.WrapError(store.CodeSaveCategories, "clear cells", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return store.WrapError(store.CodeSaveCategories, "clear categories", err)
		}
	} else {
		placeholders := strings.Repeat("?,", len(keep))
		placeholders = placeholders[:len(placeholders)-1]
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM income_cells WHERE category_id NOT IN (`+placeholders+`)`, keep...); err != nil {
			return store.WrapError(store.CodeSaveCategories, "prune cells", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE id NOT IN (`+placeholders+`)`, keep...); err != nil {
			return store.WrapError(store.CodeSaveCategories, "prune categories", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.WrapError(store.CodeSaveCategories, "commit sync", err)
	}
	return nil
}

func requireOneRow(res sql.Result, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.WrapError(code, "rows affected", err)
	}
	if n == 0 {
		return core.ErrCategoryNotFound
	}
	return nil
}
