// Package bench generates seeded synthetic datasets and drives the
// deduplication engine over them to report throughput, grounded on
// ultra_fast_deduplication.py's performance_test/benchmark_vs_original
// (the original implementation's ad hoc synthetic-data + timing harness,
// also exposed there as POST /api/performance-benchmark). It is a thin
// adapter around the engine, not part of the core pipeline.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

// cities/states mirror the fixed value pools the original synthetic
// generator drew block-friendly columns from.
var (
	cities  = []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}
	states  = []string{"NY", "CA", "IL", "TX", "AZ"}
	letters = []rune("abcdefghijklmnopqrstuvwxyz")
)

// Config parameterizes a single synthetic run.
type Config struct {
	// RecordCount is the number of rows to generate.
	RecordCount int
	// DuplicateFraction is the fraction of RecordCount turned into a
	// near-duplicate of another random row (default 0.1, matching the
	// original generator's 10%).
	DuplicateFraction float64
	// Seed makes generation reproducible; the same seed and
	// RecordCount always produce the same table.
	Seed int64
}

func (c Config) normalized() Config {
	out := c
	if out.DuplicateFraction <= 0 {
		out.DuplicateFraction = 0.1
	}
	return out
}

// MatchConfig is the fuzzy/exact column configuration the generated
// table is designed to be deduplicated with: fuzzy name/company/address
// columns plus exact-matching email, zip, and phone.
func MatchConfig() dedup.MatchConfig {
	fuzzyColumns := []string{"first_name", "last_name", "company_name", "address", "city"}
	thresholds := make(map[string]int, len(fuzzyColumns))
	for _, c := range fuzzyColumns {
		thresholds[c] = 80
	}
	return dedup.MatchConfig{
		FuzzyColumns:     fuzzyColumns,
		ExactColumns:     []string{"email", "zip", "phone1"},
		Thresholds:       thresholds,
		OverallThreshold: 80,
	}
}

// GenerateTable builds a synthetic dedup.Table of cfg.RecordCount rows
// with a Cust_Id, a Transaction Date spaced one day apart starting
// 2023-01-01, and a deliberate fraction of near-duplicate rows (every
// other MatchConfig column copied, first_name slightly perturbed) to
// exercise the engine's fuzzy
// and exact matching paths together.
func GenerateTable(cfg Config) dedup.Table {
	cfg = cfg.normalized()
	n := cfg.RecordCount
	r := rand.New(rand.NewSource(cfg.Seed))

	columns := []string{
		"Cust_Id", "first_name", "last_name", "email", "phone1",
		"company_name", "address", "city", "state", "zip", "Transaction Date",
	}
	rows := make([]dedup.Record, n)
	epoch := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows[i] = dedup.Record{
			"Cust_Id":          i + 1,
			"first_name":       randomString(r, 3+r.Intn(8)),
			"last_name":        randomString(r, 4+r.Intn(9)),
			"email":            fmt.Sprintf("%s@%s.com", randomString(r, 5), randomString(r, 5)),
			"phone1":           fmt.Sprintf("555-%04d", r.Intn(10000)),
			"company_name":     fmt.Sprintf("%s %s", randomString(r, 8), []string{"Inc", "LLC", "Corp"}[r.Intn(3)]),
			"address":          fmt.Sprintf("%d %s St", 100+r.Intn(9900), randomString(r, 8)),
			"city":             cities[r.Intn(len(cities))],
			"state":            states[r.Intn(len(states))],
			"zip":              fmt.Sprintf("%05d", 10000+r.Intn(90000)),
			"Transaction Date": epoch.AddDate(0, 0, i).Format("2006-01-02"),
		}
	}

	numDuplicates := int(float64(n) * cfg.DuplicateFraction)
	for k := 0; k < numDuplicates && n > 0; k++ {
		original := r.Intn(n)
		duplicate := r.Intn(n)
		rows[duplicate]["first_name"] = fmt.Sprintf("%sx", rows[original]["first_name"])
		rows[duplicate]["last_name"] = rows[original]["last_name"]
		rows[duplicate]["email"] = rows[original]["email"]
		for _, col := range []string{"phone1", "zip", "company_name", "address", "city"} {
			rows[duplicate][col] = rows[original][col]
		}
	}

	return dedup.Table{Columns: columns, Rows: rows}
}

func randomString(r *rand.Rand, length int) string {
	out := make([]rune, length)
	for i := range out {
		out[i] = letters[r.Intn(len(letters))]
	}
	return string(out)
}

// Result reports one run's timing and outcome, mirroring the fields the
// original benchmark printed (records/sec, duplicate groups found).
type Result struct {
	RecordCount          int           `json:"record_count"`
	Duration             time.Duration `json:"duration"`
	RecordsPerSecond     float64       `json:"records_per_second"`
	ClusterCount         int           `json:"cluster_count"`
	DuplicateRecordCount int           `json:"duplicate_record_count"`
}

// Run generates a synthetic table per cfg, deduplicates it with engine,
// and reports timing and outcome statistics.
func Run(ctx context.Context, engine *dedup.Engine, cfg Config) (Result, error) {
	table := GenerateTable(cfg)

	start := time.Now()
	bundle, err := engine.Deduplicate(ctx, table, MatchConfig())
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		RecordCount:          cfg.RecordCount,
		Duration:             elapsed,
		ClusterCount:         bundle.Statistics.ClusterCount,
		DuplicateRecordCount: bundle.Statistics.DuplicateRecordCount,
	}
	if elapsed > 0 {
		result.RecordsPerSecond = float64(cfg.RecordCount) / elapsed.Seconds()
	}
	return result, nil
}

// Suite runs Run once per size in sizes, using the same seed for every
// size so results are reproducible, mirroring
// benchmark_vs_original's sweep across dataset sizes.
func Suite(ctx context.Context, engine *dedup.Engine, sizes []int, seed int64) ([]Result, error) {
	results := make([]Result, 0, len(sizes))
	for _, size := range sizes {
		r, err := Run(ctx, engine, Config{RecordCount: size, Seed: seed})
		if err != nil {
			return nil, fmt.Errorf("bench: size %d: %w", size, err)
		}
		results = append(results, r)
	}
	return results, nil
}
