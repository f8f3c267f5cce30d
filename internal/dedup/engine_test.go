package dedup

import (
	"context"
	"testing"
)

func sampleTable() Table {
	return Table{
		Columns: []string{"Cust_Id", "account_id", "name", "transaction_date"},
		Rows: []Record{
			{"Cust_Id": 1, "account_id": "1", "name": "Jonathan Smith", "transaction_date": "2023-01-01"},
			{"Cust_Id": 2, "account_id": "1", "name": "Jonathon Smith", "transaction_date": "2023-06-01"},
			{"Cust_Id": 3, "account_id": "2", "name": "Zachary Oduya", "transaction_date": "2023-03-01"},
		},
	}
}

func TestDeduplicateClustersNearDuplicatesWithinExactBlock(t *testing.T) {
	e := NewEngine(nil)
	cfg := MatchConfig{
		ExactColumns:     []string{"account_id"},
		FuzzyColumns:     []string{"name"},
		OverallThreshold: 85,
	}

	bundle, err := e.Deduplicate(context.Background(), sampleTable(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Statistics.InputRecordCount != 3 {
		t.Fatalf("InputRecordCount = %d, want 3", bundle.Statistics.InputRecordCount)
	}
	// rows 0 and 1 share account_id and a near-identical name: one cluster;
	// row 2 is a singleton. Two winners total.
	if len(bundle.WinnerRows.Rows) != 2 {
		t.Fatalf("winner rows = %d, want 2, bundle=%+v", len(bundle.WinnerRows.Rows), bundle)
	}
	if bundle.Statistics.DuplicateRecordCount != 1 {
		t.Fatalf("DuplicateRecordCount = %d, want 1", bundle.Statistics.DuplicateRecordCount)
	}
	// Cust_Id 2 has the later transaction_date (default latest_transaction_date
	// criterion), so it wins the {1, 2} cluster; Cust_Id 1's "winner"
	// annotation must name it, per spec.md §3.
	for _, row := range bundle.DuplicateRowsWithScores.Rows {
		if row["Cust_Id"] == 1 && row["winner"] != 2 {
			t.Fatalf("Cust_Id 1's winner annotation = %v, want 2", row["winner"])
		}
	}
	gotWinnerIDs := map[any]bool{}
	for _, row := range bundle.WinnerRows.Rows {
		gotWinnerIDs[row["Cust_Id"]] = true
	}
	if !gotWinnerIDs[2] || !gotWinnerIDs[3] {
		t.Fatalf("winner Cust_Ids = %v, want {2, 3}", gotWinnerIDs)
	}
}

func TestDeduplicateRejectsMissingCustID(t *testing.T) {
	e := NewEngine(nil)
	table := Table{
		Columns: []string{"account_id", "name"},
		Rows: []Record{
			{"account_id": "1", "name": "Jonathan Smith"},
		},
	}
	cfg := MatchConfig{ExactColumns: []string{"account_id"}}
	_, err := e.Deduplicate(context.Background(), table, cfg)
	if err == nil {
		t.Fatal("expected a data error when a row has no Cust_Id")
	}
}

func TestDeduplicateRejectsEmptyConfig(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Deduplicate(context.Background(), sampleTable(), MatchConfig{})
	if err == nil {
		t.Fatal("expected a config error when no matching columns are configured")
	}
}

func TestDeduplicateIsDeterministicAcrossParallelism(t *testing.T) {
	cfg := MatchConfig{
		ExactColumns:     []string{"account_id"},
		FuzzyColumns:     []string{"name"},
		OverallThreshold: 85,
	}

	parallel := NewEngine(nil)
	parallel.Parallelism = 4
	sequential := NewEngine(nil)
	sequential.Parallelism = 1

	pBundle, err := parallel.Deduplicate(context.Background(), sampleTable(), cfg)
	if err != nil {
		t.Fatalf("parallel run error: %v", err)
	}
	sBundle, err := sequential.Deduplicate(context.Background(), sampleTable(), cfg)
	if err != nil {
		t.Fatalf("sequential run error: %v", err)
	}

	if len(pBundle.WinnerRows.Rows) != len(sBundle.WinnerRows.Rows) {
		t.Fatalf("winner count differs: parallel=%d sequential=%d",
			len(pBundle.WinnerRows.Rows), len(sBundle.WinnerRows.Rows))
	}
	if pBundle.Statistics.ClusterCount != sBundle.Statistics.ClusterCount {
		t.Fatalf("cluster count differs: parallel=%d sequential=%d",
			pBundle.Statistics.ClusterCount, sBundle.Statistics.ClusterCount)
	}
}

func TestDeduplicateCrossAppliesPrecedence(t *testing.T) {
	e := NewEngine(nil)
	table := Table{
		Columns: []string{"Cust_Id", "account_id", "name", "transaction_date", "Source_System"},
		Rows: []Record{
			{"Cust_Id": 10, "account_id": "1", "name": "Jonathan Smith", "transaction_date": "2024-01-01", "Source_System": "legacy"},
			{"Cust_Id": 20, "account_id": "1", "name": "Jonathon Smith", "transaction_date": "2020-01-01", "Source_System": "crm"},
		},
	}
	cfg := MatchConfig{
		ExactColumns:     []string{"account_id"},
		FuzzyColumns:     []string{"name"},
		OverallThreshold: 80,
	}
	precedence := PrecedenceMap{"crm": 0, "legacy": 1}

	bundle, err := e.DeduplicateCross(context.Background(), table, cfg, precedence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.WinnerRows.Rows) != 1 {
		t.Fatalf("expected the two near-duplicate rows to merge into one winner, got %d", len(bundle.WinnerRows.Rows))
	}
	if bundle.WinnerRows.Rows[0]["winner_source"] != "crm" {
		t.Fatalf("expected crm to win on precedence, got %v", bundle.WinnerRows.Rows[0]["winner_source"])
	}
	if bundle.WinnerRows.Rows[0]["Cust_Id"] != 20 {
		t.Fatalf("expected Cust_Id 20 (crm) to win, got %v", bundle.WinnerRows.Rows[0]["Cust_Id"])
	}
}
