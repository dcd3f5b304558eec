package core

import (
	"strings"
	"time"
)

// MaxNameLength bounds category names.
const MaxNameLength = 100

type (
	// Category is a named, ordered income type ("Sueldo", "Arriendos", ...)
	// under which monthly amounts are recorded.
	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Order     int       `json:"order"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// Matrix is one year's sparse grid of category id -> month (1-12) -> amount.
	// A missing entry is a zero cell, never an error.
	Matrix map[string]map[int]int64
)

// MonthNames maps month numbers to their short Spanish names for display.
var MonthNames = map[int]string{
	1: "Ene", 2: "Feb", 3: "Mar", 4: "Abr", 5: "May", 6: "Jun",
	7: "Jul", 8: "Ago", 9: "Sep", 10: "Oct", 11: "Nov", 12: "Dic",
}

// ValidMonth reports whether m is a calendar month.
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}

// NormalizeName trims a caller-supplied category name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

func (c Category) Validate() error {
	name := NormalizeName(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Cell returns the amount at (categoryID, month), 0 when unset.
func (m Matrix) Cell(categoryID string, month int) int64 {
	return m[categoryID][month]
}

// SetCell stores a clamped amount, creating the row as needed. A zero amount
// removes the entry so the matrix stays sparse.
func (m Matrix) SetCell(categoryID string, month int, value int64) {
	if value < 0 {
		value = 0
	}
	row := m[categoryID]
	if value == 0 {
		if row != nil {
			delete(row, month)
			if len(row) == 0 {
				delete(m, categoryID)
			}
		}
		return
	}
	if row == nil {
		row = make(map[int]int64)
		m[categoryID] = row
	}
	row[month] = value
}

// Clone returns an independent copy; mutating it does not affect m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for id, row := range m {
		cp := make(map[int]int64, len(row))
		for month, v := range row {
			cp[month] = v
		}
		out[id] = cp
	}
	return out
}
