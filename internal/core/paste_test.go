package core

import "testing"

func TestIngestRow(t *testing.T) {
	got := IngestRow("500000\t520000\t510000", 1)
	want := map[int]int64{1: 500000, 2: 520000, 3: 510000}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for month, v := range want {
		if got[month] != v {
			t.Fatalf("month %d = %d, want %d", month, got[month], v)
		}
	}
}

func TestIngestRowStartMonthOffset(t *testing.T) {
	got := IngestRow("100\t200", 11)
	if got[11] != 100 || got[12] != 200 {
		t.Fatalf("got %v", got)
	}
}

func TestIngestRowDropsBeyondDecember(t *testing.T) {
	got := IngestRow("100\t200\t300", 11)
	if len(got) != 2 {
		t.Fatalf("values past month 12 must be dropped, got %v", got)
	}
	if _, ok := got[13]; ok {
		t.Fatalf("month 13 must never appear")
	}
}

func TestIngestRowOmitsZeroes(t *testing.T) {
	got := IngestRow("100\t0\t\tabc\t200", 1)
	if len(got) != 2 || got[1] != 100 || got[5] != 200 {
		t.Fatalf("zero and unparseable cells must be omitted, got %v", got)
	}
}

func TestIngestMatrix(t *testing.T) {
	cats := []Category{
		{ID: "a", Name: "Sueldo"},
		{ID: "b", Name: "Turnos"},
		{ID: "c", Name: "Arriendos"},
	}
	block := "100\t200\n300\t400"

	got := IngestMatrix(block, 1, cats)
	if len(got) != 2 {
		t.Fatalf("expected rows for two categories, got %v", got)
	}
	if got["b"][1] != 100 || got["b"][2] != 200 {
		t.Fatalf("row b = %v", got["b"])
	}
	if got["c"][1] != 300 || got["c"][2] != 400 {
		t.Fatalf("row c = %v", got["c"])
	}
}

func TestIngestMatrixDropsOverflowRows(t *testing.T) {
	cats := []Category{{ID: "a"}, {ID: "b"}}
	got := IngestMatrix("1\n2\n3\n4", 1, cats)
	if len(got) != 1 {
		t.Fatalf("rows beyond the last category must be dropped, got %v", got)
	}
}

func TestIngestMatrixSkipsBlankLines(t *testing.T) {
	cats := []Category{{ID: "a"}, {ID: "b"}}
	got := IngestMatrix("100\r\n\n200\n", 0, cats)
	if got["a"][1] != 100 || got["b"][1] != 200 {
		t.Fatalf("got %v", got)
	}
}

func TestIngestMatrixStartBeyondCategories(t *testing.T) {
	got := IngestMatrix("100", 5, []Category{{ID: "a"}})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
