package core

import "strings"

// IngestRow converts one tab-delimited clipboard line into per-month amounts.
//
// Values land on consecutive months beginning at startMonth; anything that
// would fall past month 12 is dropped, not wrapped into the next year. Zero
// values are omitted from the result: a pasted zero is indistinguishable from
// a cell that was never pasted.
func IngestRow(pastedText string, startMonth int) map[int]int64 {
	if startMonth < 1 {
		startMonth = 1
	}
	result := make(map[int]int64)
	if startMonth > 12 {
		return result
	}
	values := strings.Split(pastedText, "\t")
	if max := 12 - startMonth + 1; len(values) > max {
		values = values[:max]
	}
	for i, v := range ParseBulkValues(values) {
		if v > 0 {
			result[startMonth+i] = v
		}
	}
	return result
}

// IngestMatrix converts a multi-line clipboard block into per-category row
// assignments. Lines map onto categories from startCategoryIndex onward in
// registry order; blank lines are skipped and rows beyond the last available
// category are dropped. Each row is ingested starting at month 1.
func IngestMatrix(pastedBlock string, startCategoryIndex int, categories []Category) map[string]map[int]int64 {
	result := make(map[string]map[int]int64)
	if startCategoryIndex < 0 {
		startCategoryIndex = 0
	}
	if startCategoryIndex >= len(categories) {
		return result
	}
	available := categories[startCategoryIndex:]

	var lines []string
	for _, line := range strings.Split(pastedBlock, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
	}
	for i, line := range lines {
		if i >= len(available) {
			break
		}
		result[available[i].ID] = IngestRow(line, 1)
	}
	return result
}
