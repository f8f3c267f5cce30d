package dedup

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fuzzydedup/dedup/internal/dedup/block"
	"github.com/fuzzydedup/dedup/internal/dedup/cluster"
	"github.com/fuzzydedup/dedup/internal/dedup/dederr"
	"github.com/fuzzydedup/dedup/internal/dedup/elect"
	"github.com/fuzzydedup/dedup/internal/dedup/normalize"
	"github.com/fuzzydedup/dedup/internal/dedup/score"
)

func defaultParallelism() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Engine runs the normalize/block/score/cluster/elect pipeline.
type Engine struct {
	Parallelism int
	Logger      *zap.Logger
}

// NewEngine returns an Engine with the given logger, defaulting
// parallelism to NumCPU()-1 (minimum 1).
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Parallelism: defaultParallelism(), Logger: log}
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// recordMaps converts a []Record to the []map[string]any the normalize
// package takes: Record is a named type over map[string]any, and Go does
// not treat []Record and []map[string]any as assignable slice types even
// though their elements are, so the conversion has to walk the slice.
func recordMaps(rows []Record) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// matchColumns is the union of exact and fuzzy columns, in a stable order.
func matchColumns(cfg MatchConfig) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, c := range cfg.ExactColumns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range cfg.FuzzyColumns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	return cols
}

func scoreConfig(cfg MatchConfig) score.Config {
	return score.Config{
		FuzzyColumns:         cfg.FuzzyColumns,
		ExactColumns:         cfg.ExactColumns,
		Thresholds:           cfg.Thresholds,
		OverallThreshold:     cfg.OverallThreshold,
		LengthPrefilterSlack: cfg.LengthPrefilterSlack,
	}
}

// matchedPair is one confirmed duplicate pair within a block.
type matchedPair struct {
	i, j   int
	result score.Result
}

// findMatches scores every pair within every block, in parallel across
// blocks up to cfg.Parallelism workers. On a worker-pool setup failure it
// logs a ResourceError and falls back to the identical sequential
// comparison, so output is unaffected by which path ran.
func (e *Engine) findMatches(ctx context.Context, views []normalize.View, blocks []block.Block, cfg MatchConfig) []matchedPair {
	scfg := scoreConfig(cfg)
	log := e.logger()

	results := make([][]matchedPair, len(blocks))

	runParallel := func() error {
		if cfg.Parallelism <= 1 {
			return dederr.NewResourceError("parallelism <= 1, no pool needed", nil)
		}
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Parallelism)
		for bi, blk := range blocks {
			bi, blk := bi, blk
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				results[bi] = scoreBlock(views, blk, scfg)
				return nil
			})
		}
		return g.Wait()
	}

	if err := runParallel(); err != nil {
		log.Warn("parallel block scoring unavailable, falling back to sequential",
			zap.Error(err))
		for bi, blk := range blocks {
			results[bi] = scoreBlock(views, blk, scfg)
		}
	}

	var out []matchedPair
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func scoreBlock(views []normalize.View, blk block.Block, scfg score.Config) []matchedPair {
	var pairs []matchedPair
	idx := blk.Indices
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			i, j := idx[a], idx[b]
			res := score.Pair(views[i], views[j], scfg)
			if res.Matched {
				pairs = append(pairs, matchedPair{i: i, j: j, result: res})
			}
		}
	}
	return pairs
}

// sourceRows converts the given rows of a Table to elect.Row values.
func sourceRows(t Table, indices []int) []elect.Row {
	rows := make([]elect.Row, len(indices))
	for k, i := range indices {
		rows[k] = elect.Row{Index: i, Values: t.Rows[i]}
	}
	return rows
}

// Deduplicate runs the single-source pipeline of §5 over table, using
// cfg.Source and cfg.Rulebook to resolve each cluster's winning
// criterion.
func (e *Engine) Deduplicate(ctx context.Context, table Table, cfg MatchConfig) (OutputBundle, error) {
	return e.deduplicateRulebook(ctx, table, cfg, cfg.Source, cfg.Rulebook)
}

func bestPairScoreWithin(members []int, pairScore map[[2]int]score.Result) (float64, map[string]float64) {
	var best float64
	var bestPerColumn map[string]float64
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			i, j := members[a], members[b]
			key := [2]int{i, j}
			if i > j {
				key = [2]int{j, i}
			}
			if res, ok := pairScore[key]; ok && res.Overall > best {
				best = res.Overall
				bestPerColumn = res.PerColumn
			}
		}
	}
	return best, bestPerColumn
}

// fuzzyScoreColumn names the per-fuzzy-column annotation spec.md §3
// requires: "<col>_fuzzy_match_percentage".
func fuzzyScoreColumn(col string) string {
	return col + "_fuzzy_match_percentage"
}

// buildOutputBundle assembles the annotated output table and its
// final/winner/duplicate/unique projections. duplicateRow marks rows that
// belong to a multi-row cluster (spec.md §3's "unique_rows" are the
// singleton complement); winners marks the elected row of every cluster,
// unique rows included (a singleton is its own winner).
func buildOutputBundle(table Table, ann *Annotations, winners map[int]bool, duplicateRow []bool, fuzzyColumns []string) OutputBundle {
	finalCols := append([]string{}, table.Columns...)
	finalCols = append(finalCols, "group_id", "match_percentage")
	for _, col := range fuzzyColumns {
		finalCols = append(finalCols, fuzzyScoreColumn(col))
	}
	finalCols = append(finalCols, "winner", "winner_source")

	var final, winnerRows, dupRows, uniqueRows []Record

	for i, row := range table.Rows {
		out := make(Record, len(finalCols))
		for k, v := range row {
			out[k] = v
		}
		out["group_id"] = ann.GroupID[i]
		out["match_percentage"] = ann.MatchPercentage[i]
		for _, col := range fuzzyColumns {
			out[fuzzyScoreColumn(col)] = ann.FuzzyColumnScores[i][col]
		}
		out["winner"] = ann.Winner[i]
		out["winner_source"] = ann.WinnerSource[i]

		final = append(final, out)
		if winners[i] {
			winnerRows = append(winnerRows, out)
		}
		if duplicateRow[i] {
			dupRows = append(dupRows, out)
		} else {
			uniqueRows = append(uniqueRows, out)
		}
	}

	return OutputBundle{
		FinalRows:               Table{Columns: finalCols, Rows: final},
		WinnerRows:              Table{Columns: finalCols, Rows: winnerRows},
		DuplicateRowsWithScores: Table{Columns: finalCols, Rows: dupRows},
		UniqueRows:              Table{Columns: finalCols, Rows: uniqueRows},
	}
}

// sourceSystemColumns lists the aliases a cross-source table's
// Source_System column may appear under.
var sourceSystemColumns = []string{"Source_System", "source_system", "SourceSystem"}

// hasSourceSystemColumn reports whether table declares a Source_System
// column under any known alias.
func hasSourceSystemColumn(table Table) bool {
	for _, col := range table.Columns {
		for _, alias := range sourceSystemColumns {
			if col == alias {
				return true
			}
		}
	}
	return false
}

// validateCustIDs enforces spec.md §7's DataError: every row must carry
// a non-nil Cust_Id.
func validateCustIDs(table Table) error {
	for i, row := range table.Rows {
		if v, ok := row[CustIDColumn]; !ok || v == nil {
			return dederr.NewDataError(fmt.Sprintf("row %d is missing the required Cust_Id field", i), nil)
		}
	}
	return nil
}

func sourceSystemOf(rec Record) string {
	for _, col := range sourceSystemColumns {
		if v, ok := rec[col]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// clusterResult is the shared output of the normalize/block/score/cluster
// phases, common to both single-source and cross-source modes.
type clusterResult struct {
	groups    [][]int
	pairScore map[[2]int]score.Result
	timings   map[string]time.Duration
}

// runPipeline runs §4.1-§4.4 over table: normalize, block, parallel-score,
// and Union-Find cluster. logFields are attached to the blocking-mode
// warning when rule B2 fires.
func (e *Engine) runPipeline(ctx context.Context, table Table, cfg MatchConfig, logFields ...zap.Field) (clusterResult, error) {
	log := e.logger()
	timings := make(map[string]time.Duration)

	if len(cfg.FuzzyColumns) == 0 && len(cfg.ExactColumns) == 0 {
		return clusterResult{}, dederr.NewConfigError("no fuzzy or exact matching columns configured", nil)
	}
	cols := matchColumns(cfg)

	t0 := time.Now()
	views := normalize.Table(recordMaps(table.Rows), cols)
	timings["normalize"] = time.Since(t0)

	t0 = time.Now()
	bcfg := block.Config{ExactColumns: cfg.ExactColumns, FuzzyColumns: cfg.FuzzyColumns, MaxBlockSize: cfg.MaxBlockSize}
	blocks, _, mode := block.Build(views, bcfg)
	timings["block"] = time.Since(t0)
	if mode == block.ModePrefix {
		fields := append([]zap.Field{zap.String("column", cfg.FuzzyColumns[0]), zap.Int("rows", table.Len())}, logFields...)
		log.Warn("blocking fell back to fuzzy-prefix rule B2; no usable exact column configured", fields...)
	}

	t0 = time.Now()
	pairs := e.findMatches(ctx, views, blocks, cfg)
	timings["score"] = time.Since(t0)

	t0 = time.Now()
	builder := cluster.NewBuilder(table.Len())
	for _, p := range pairs {
		builder.Union(p.i, p.j)
	}
	groups := builder.Groups()
	timings["cluster"] = time.Since(t0)

	pairScore := make(map[[2]int]score.Result, len(pairs))
	for _, p := range pairs {
		pairScore[[2]int{p.i, p.j}] = p.result
	}

	return clusterResult{groups: groups, pairScore: pairScore, timings: timings}, nil
}

// DeduplicateCross runs the same normalize/block/score/cluster pipeline
// as Deduplicate over a single table spanning multiple source systems,
// then elects each multi-row cluster's winner by cfg's precedence map
// (§4.5 cross-source mode): the member whose own Source_System carries
// the lowest precedence wins, ties broken by lowest row index. table
// must carry a Source_System column.
func (e *Engine) DeduplicateCross(ctx context.Context, table Table, cfg MatchConfig, precedence PrecedenceMap) (OutputBundle, error) {
	if !hasSourceSystemColumn(table) {
		return OutputBundle{}, dederr.NewDataError("cross-source mode requires a Source_System column", nil)
	}
	if err := validateCustIDs(table); err != nil {
		return OutputBundle{}, err
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = e.Parallelism
	}
	cfg = cfg.normalized()

	cr, err := e.runPipeline(ctx, table, cfg)
	if err != nil {
		return OutputBundle{}, err
	}

	t0 := time.Now()
	ann := newAnnotations(table.Len())
	winners := make(map[int]bool)
	duplicateRow := make([]bool, table.Len())
	for gi, members := range cr.groups {
		groupID := gi + 1
		for _, idx := range members {
			ann.GroupID[idx] = groupID
		}
		best, perColumn := bestPairScoreWithin(members, cr.pairScore)
		for _, idx := range members {
			ann.MatchPercentage[idx] = best
			ann.FuzzyColumnScores[idx] = perColumn
		}
		if len(members) == 1 {
			idx := members[0]
			winners[idx] = true
			ann.WinnerSource[idx] = sourceSystemOf(table.Rows[idx])
			continue
		}
		outcome, err := elect.ElectCross(sourceRows(table, members), elect.Config{Precedence: precedence})
		if err != nil {
			return OutputBundle{}, err
		}
		winSource := sourceSystemOf(table.Rows[outcome.WinnerIndex])
		winnerCustID := CustID(table.Rows[outcome.WinnerIndex])
		winners[outcome.WinnerIndex] = true
		for _, idx := range members {
			duplicateRow[idx] = true
			ann.Winner[idx] = winnerCustID
			ann.WinnerSource[idx] = winSource
		}
	}
	cr.timings["elect"] = time.Since(t0)

	bundle := buildOutputBundle(table, ann, winners, duplicateRow, cfg.FuzzyColumns)
	bundle.Statistics = Statistics{
		InputRecordCount:     table.Len(),
		FinalRecordCount:     len(bundle.FinalRows.Rows),
		ClusterCount:         len(cr.groups),
		DuplicateRecordCount: table.Len() - len(winners),
		PhaseTimings:         cr.timings,
	}
	return bundle, nil
}

// deduplicateRulebook is the single-source pipeline of §4.5, parameterized
// by an explicit source name and rulebook.
func (e *Engine) deduplicateRulebook(ctx context.Context, table Table, cfg MatchConfig, source string, rulebook Rulebook) (OutputBundle, error) {
	if err := validateCustIDs(table); err != nil {
		return OutputBundle{}, err
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = e.Parallelism
	}
	cfg = cfg.normalized()

	cr, err := e.runPipeline(ctx, table, cfg, zap.String("source", source))
	if err != nil {
		return OutputBundle{}, err
	}

	t0 := time.Now()
	ann := newAnnotations(table.Len())
	winners := make(map[int]bool)
	duplicateRow := make([]bool, table.Len())
	for gi, members := range cr.groups {
		groupID := gi + 1
		for _, idx := range members {
			ann.GroupID[idx] = groupID
		}
		best, perColumn := bestPairScoreWithin(members, cr.pairScore)
		for _, idx := range members {
			ann.MatchPercentage[idx] = best
			ann.FuzzyColumnScores[idx] = perColumn
		}
		if len(members) == 1 {
			winners[members[0]] = true
			ann.WinnerSource[members[0]] = source
			continue
		}
		outcome, err := elect.Elect(sourceRows(table, members), elect.Config{Source: source, Rulebook: rulebook})
		if err != nil {
			return OutputBundle{}, err
		}
		winnerCustID := CustID(table.Rows[outcome.WinnerIndex])
		winners[outcome.WinnerIndex] = true
		for _, idx := range members {
			duplicateRow[idx] = true
			ann.Winner[idx] = winnerCustID
			ann.WinnerSource[idx] = source
		}
	}
	cr.timings["elect"] = time.Since(t0)

	bundle := buildOutputBundle(table, ann, winners, duplicateRow, cfg.FuzzyColumns)
	bundle.Statistics = Statistics{
		InputRecordCount:     table.Len(),
		FinalRecordCount:     len(bundle.FinalRows.Rows),
		ClusterCount:         len(cr.groups),
		DuplicateRecordCount: table.Len() - len(winners),
		PhaseTimings:         cr.timings,
	}
	return bundle, nil
}
