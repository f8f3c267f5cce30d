package elect

import "testing"

func TestElectLatestTransactionDate(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"transaction_date": "2023-01-01"}},
		{Index: 1, Values: map[string]any{"transaction_date": "2023-06-15"}},
		{Index: 2, Values: map[string]any{"transaction_date": "2022-12-31"}},
	}
	out, err := Elect(members, Config{Source: "crm", Rulebook: map[string]string{"crm": criterionLatest}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("winner = %d, want 1 (latest date)", out.WinnerIndex)
	}
}

func TestElectEarliestTransactionDate(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"transaction_date": "2023-01-01"}},
		{Index: 1, Values: map[string]any{"transaction_date": "2023-06-15"}},
	}
	out, err := Elect(members, Config{Source: "crm", Rulebook: map[string]string{"crm": criterionEarliest}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 0 {
		t.Fatalf("winner = %d, want 0 (earliest date)", out.WinnerIndex)
	}
}

func TestElectLargestName(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"name": "Jo"}},
		{Index: 1, Values: map[string]any{"name": "Jonathan Alexander"}},
	}
	out, err := Elect(members, Config{Source: "billing", Rulebook: map[string]string{"billing": criterionLargest}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("winner = %d, want 1 (longest name)", out.WinnerIndex)
	}
}

func TestElectDefaultsToLatestWhenRulebookSilent(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"transaction_date": "2021-01-01"}},
		{Index: 1, Values: map[string]any{"transaction_date": "2024-01-01"}},
	}
	out, err := Elect(members, Config{Source: "unknown-source"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("winner = %d, want 1 under the default latest-date criterion", out.WinnerIndex)
	}
}

func TestElectSyntheticDateFallbackPicksLaterRowIndex(t *testing.T) {
	members := []Row{
		{Index: 5, Values: map[string]any{}},
		{Index: 2, Values: map[string]any{}},
	}
	out, err := Elect(members, Config{Source: "crm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Row 5's synthetic date (epoch+5 days) is later than row 2's
	// (epoch+2 days), so under "latest" it should win outright.
	if out.WinnerIndex != 5 {
		t.Fatalf("winner = %d, want 5 (later synthetic date)", out.WinnerIndex)
	}
}

func TestElectUnknownCriterionIsConfigError(t *testing.T) {
	members := []Row{{Index: 0, Values: map[string]any{}}}
	_, err := Elect(members, Config{Source: "x", Rulebook: map[string]string{"x": "not_a_real_criterion"}})
	if err == nil {
		t.Fatal("expected an error for an unknown winning criterion")
	}
}

func TestElectCrossPicksLowestPrecedence(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"transaction_date": "2024-01-01", "Source_System": "legacy"}},
		{Index: 1, Values: map[string]any{"transaction_date": "2020-01-01", "Source_System": "crm"}},
	}
	precedence := map[string]int{"crm": 0, "legacy": 1}

	out, err := ElectCross(members, Config{Precedence: precedence})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("expected row 1 (crm) to win on precedence, got %+v", out)
	}
	if got := SourceSystem(members[out.WinnerIndex]); got != "crm" {
		t.Fatalf("winner source = %s, want crm", got)
	}
}

func TestElectCrossBreaksTiesByRowIndex(t *testing.T) {
	members := []Row{
		{Index: 3, Values: map[string]any{"Source_System": "crm"}},
		{Index: 1, Values: map[string]any{"Source_System": "crm"}},
	}
	precedence := map[string]int{"crm": 0}

	out, err := ElectCross(members, Config{Precedence: precedence})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("expected the lower row index to win an equal-precedence tie, got %+v", out)
	}
}

func TestElectCrossFallsBackToSentinelPrecedence(t *testing.T) {
	members := []Row{
		{Index: 0, Values: map[string]any{"Source_System": "unlisted"}},
		{Index: 1, Values: map[string]any{"Source_System": "crm"}},
	}
	precedence := map[string]int{"crm": 0}

	out, err := ElectCross(members, Config{Precedence: precedence})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("expected the listed source to beat the sentinel-precedence source, got %+v", out)
	}
}
