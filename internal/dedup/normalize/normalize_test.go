package normalize

import "testing"

func TestCanonicalTrimsAndUppercases(t *testing.T) {
	if got := Canonical("  jane doe  "); got != "JANE DOE" {
		t.Fatalf("Canonical = %q, want %q", got, "JANE DOE")
	}
}

func TestCanonicalNilIsEmpty(t *testing.T) {
	if got := Canonical(nil); got != "" {
		t.Fatalf("Canonical(nil) = %q, want empty", got)
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	once := Canonical("Mixed Case Value")
	twice := Canonical(once)
	if once != twice {
		t.Fatalf("Canonical is not idempotent: %q vs %q", once, twice)
	}
}

func TestRowBuildsLengths(t *testing.T) {
	rec := map[string]any{"name": "Jane", "city": nil}
	v := Row(rec, []string{"name", "city", "missing"})

	if v.Values["name"] != "JANE" || v.Lengths["name"] != 4 {
		t.Fatalf("unexpected view for name: %+v", v)
	}
	if v.Values["city"] != "" || v.Lengths["city"] != 0 {
		t.Fatalf("unexpected view for nil city: %+v", v)
	}
	if v.Values["missing"] != "" {
		t.Fatalf("unexpected view for a column absent from the record: %+v", v)
	}
}
