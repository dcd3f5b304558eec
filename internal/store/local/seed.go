package local

import (
	"math/rand"

	"ingresos/internal/core"

	"github.com/google/uuid"
)

// seedCategories are the demo registry created on first run.
var seedCategories = []string{"Sueldo", "Turnos", "UMed", "Arriendos", "Dividendos"}

// seed creates the demo categories plus sample amounts for the last three
// months of the current year, so a fresh install shows a populated matrix.
// Caller holds a.mu.
func (a *Adapter) seed() error {
	now := a.now().UTC()
	cats := make([]core.Category, 0, len(seedCategories))
	for i, name := range seedCategories {
		cats = append(cats, core.Category{
			ID:        uuid.NewString(),
			Name:      name,
			Order:     i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := a.saveCategories(cats); err != nil {
		return err
	}

	year := now.Year()
	currentMonth := int(now.Month())
	m, err := a.loadMatrix(year)
	if err != nil {
		return err
	}
	for _, c := range cats {
		for offset := 0; offset < 3; offset++ {
			month := currentMonth - offset
			if month < 1 {
				month = 1
			}
			amount := int64(rand.Intn(500_000)) + 100_000
			m.SetCell(c.ID, month, amount)
		}
	}
	return a.saveMatrix(year, m)
}
