package core

import "sort"

// MonthStat identifies a single month and its total.
type MonthStat struct {
	Month     int    `json:"month"`
	MonthName string `json:"monthName"`
	Value     int64  `json:"value"`
}

// CategoryShare is one entry of the ranked category breakdown.
type CategoryShare struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Total        int64   `json:"total"`
	Percentage   float64 `json:"percentage"`
}

// Stats bundles the derived figures for one year's matrix.
type Stats struct {
	MonthlyTotals  map[int]int64    `json:"monthlyTotals"`
	CategoryTotals map[string]int64 `json:"categoryTotals"`
	GrandTotal     int64            `json:"grandTotal"`
	AverageMonthly float64          `json:"averageMonthly"`
	HighestMonth   MonthStat        `json:"highestMonth"`
	LowestMonth    MonthStat        `json:"lowestMonth"`
	TopCategories  []CategoryShare  `json:"topCategories"`
}

// MonthlyTotals sums each month's column across all categories. Every month
// 1-12 is present in the result, zero when no category recorded a value.
func MonthlyTotals(m Matrix) map[int]int64 {
	totals := make(map[int]int64, 12)
	for month := 1; month <= 12; month++ {
		totals[month] = 0
	}
	for _, row := range m {
		for month, v := range row {
			if ValidMonth(month) {
				totals[month] += v
			}
		}
	}
	return totals
}

// CategoryTotals sums each category's row across the twelve months.
func CategoryTotals(m Matrix) map[string]int64 {
	totals := make(map[string]int64, len(m))
	for id, row := range m {
		var sum int64
		for month, v := range row {
			if ValidMonth(month) {
				sum += v
			}
		}
		totals[id] = sum
	}
	return totals
}

// GrandTotal sums every recorded amount in the matrix.
func GrandTotal(m Matrix) int64 {
	var total int64
	for _, row := range m {
		for month, v := range row {
			if ValidMonth(month) {
				total += v
			}
		}
	}
	return total
}

// Statistics derives the full yearly overview from a matrix snapshot and the
// category list. Pure: absent data counts as zero throughout.
//
// AverageMonthly divides the grand total by the number of months with a
// nonzero total. Highest and lowest month only consider nonzero months, ties
// broken by the first month encountered in calendar order. TopCategories is
// ranked by total descending, zero-total categories excluded, percentages
// relative to the grand total (0 when the grand total is 0).
func Statistics(m Matrix, categories []Category) Stats {
	monthly := MonthlyTotals(m)
	byCategory := CategoryTotals(m)
	grand := GrandTotal(m)

	stats := Stats{
		MonthlyTotals:  monthly,
		CategoryTotals: byCategory,
		GrandTotal:     grand,
		HighestMonth:   MonthStat{Month: 1, MonthName: MonthNames[1]},
		LowestMonth:    MonthStat{Month: 1, MonthName: MonthNames[1]},
	}

	activeMonths := 0
	lowest := int64(-1)
	for month := 1; month <= 12; month++ {
		v := monthly[month]
		if v <= 0 {
			continue
		}
		activeMonths++
		if v > stats.HighestMonth.Value {
			stats.HighestMonth = MonthStat{Month: month, MonthName: MonthNames[month], Value: v}
		}
		if lowest < 0 || v < lowest {
			lowest = v
			stats.LowestMonth = MonthStat{Month: month, MonthName: MonthNames[month], Value: v}
		}
	}
	if activeMonths > 0 {
		stats.AverageMonthly = float64(grand) / float64(activeMonths)
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	for id, total := range byCategory {
		if total <= 0 {
			continue
		}
		share := CategoryShare{
			CategoryID:   id,
			CategoryName: names[id],
			Total:        total,
		}
		if share.CategoryName == "" {
			share.CategoryName = "Categoría desconocida"
		}
		if grand > 0 {
			share.Percentage = float64(total) / float64(grand) * 100
		}
		stats.TopCategories = append(stats.TopCategories, share)
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.CategoryID < b.CategoryID
	})

	return stats
}
