package block

import (
	"testing"

	"github.com/fuzzydedup/dedup/internal/dedup/normalize"
)

func rowView(cols []string, values ...string) normalize.View {
	v := normalize.View{Values: map[string]string{}, Lengths: map[string]int{}}
	for i, col := range cols {
		canon := normalize.Canonical(values[i])
		v.Values[col] = canon
		v.Lengths[col] = len(canon)
	}
	return v
}

func TestBuildExactBlocking(t *testing.T) {
	cols := []string{"account_id"}
	views := []normalize.View{
		rowView(cols, "A1"),
		rowView(cols, "A1"),
		rowView(cols, "B2"),
	}

	blocks, singletons, mode := Build(views, Config{ExactColumns: cols})
	if mode != ModeExact {
		t.Fatalf("mode = %s, want %s", mode, ModeExact)
	}
	if len(blocks) != 1 || len(blocks[0].Indices) != 2 {
		t.Fatalf("blocks = %+v, want one block of size 2", blocks)
	}
	if len(singletons) != 1 || singletons[0] != 2 {
		t.Fatalf("singletons = %v, want [2]", singletons)
	}
}

func TestBuildFuzzyPrefixFallback(t *testing.T) {
	cols := []string{"name"}
	views := []normalize.View{
		rowView(cols, "Jonathan Smith"),
		rowView(cols, "Jonathon Smithe"),
		rowView(cols, "Zachary Oduya"),
	}

	blocks, singletons, mode := Build(views, Config{FuzzyColumns: cols})
	if mode != ModePrefix {
		t.Fatalf("mode = %s, want %s", mode, ModePrefix)
	}
	total := len(singletons)
	for _, b := range blocks {
		total += len(b.Indices)
	}
	if total != 3 {
		t.Fatalf("expected all 3 rows accounted for, got %d", total)
	}
}

func TestBuildDegenerateSingleBlock(t *testing.T) {
	views := []normalize.View{{Values: map[string]string{}}, {Values: map[string]string{}}}
	blocks, singletons, mode := Build(views, Config{})
	if mode != ModeDegenerate {
		t.Fatalf("mode = %s, want %s", mode, ModeDegenerate)
	}
	if len(singletons) != 0 || len(blocks) != 1 || len(blocks[0].Indices) != 2 {
		t.Fatalf("expected one block of 2, got blocks=%+v singletons=%v", blocks, singletons)
	}
}

func TestBuildSplitsOversizeBlocks(t *testing.T) {
	cols := []string{"account_id"}
	var views []normalize.View
	for i := 0; i < 25; i++ {
		views = append(views, rowView(cols, "SAME"))
	}

	blocks, singletons, _ := Build(views, Config{ExactColumns: cols, MaxBlockSize: 10})
	if len(singletons) != 0 {
		t.Fatalf("expected no singletons, got %v", singletons)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 chunks of at most 10, got %d blocks", len(blocks))
	}
	total := 0
	for _, b := range blocks {
		if len(b.Indices) > 10 {
			t.Fatalf("chunk exceeds MaxBlockSize: %+v", b)
		}
		total += len(b.Indices)
	}
	if total != 25 {
		t.Fatalf("expected all 25 rows accounted for, got %d", total)
	}
}
