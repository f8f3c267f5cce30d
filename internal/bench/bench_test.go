package bench

import (
	"context"
	"testing"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

func TestGenerateTableIsReproducibleForASeed(t *testing.T) {
	a := GenerateTable(Config{RecordCount: 50, Seed: 7})
	b := GenerateTable(Config{RecordCount: 50, Seed: 7})

	if len(a.Rows) != 50 || len(b.Rows) != 50 {
		t.Fatalf("expected 50 rows each, got %d and %d", len(a.Rows), len(b.Rows))
	}
	for i := range a.Rows {
		if a.Rows[i]["email"] != b.Rows[i]["email"] {
			t.Fatalf("row %d email differs between runs with the same seed: %v vs %v",
				i, a.Rows[i]["email"], b.Rows[i]["email"])
		}
	}
}

func TestGenerateTableSeedsDuplicates(t *testing.T) {
	table := GenerateTable(Config{RecordCount: 200, Seed: 1, DuplicateFraction: 0.2})

	seen := make(map[any]int)
	for _, row := range table.Rows {
		seen[row["email"]]++
	}
	var repeated int
	for _, count := range seen {
		if count > 1 {
			repeated++
		}
	}
	if repeated == 0 {
		t.Fatal("expected the duplicate-seeding pass to produce at least one repeated email")
	}
}

func TestRunDeduplicatesGeneratedTable(t *testing.T) {
	engine := dedup.NewEngine(nil)
	result, err := Run(context.Background(), engine, Config{RecordCount: 100, Seed: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RecordCount != 100 {
		t.Fatalf("RecordCount = %d, want 100", result.RecordCount)
	}
	if result.ClusterCount == 0 {
		t.Fatal("expected at least one cluster over a non-empty table")
	}
}

func TestSuiteRunsEverySize(t *testing.T) {
	engine := dedup.NewEngine(nil)
	results, err := Suite(context.Background(), engine, []int{10, 20, 30}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, size := range []int{10, 20, 30} {
		if results[i].RecordCount != size {
			t.Fatalf("result %d RecordCount = %d, want %d", i, results[i].RecordCount, size)
		}
	}
}
