// Package dedup implements the fuzzy deduplication engine: blocking,
// pairwise scoring, Union-Find clustering, and rule-driven winner election,
// in single-source and cross-source modes.
package dedup

import "time"

// Record is a single row, keyed by column name. The row's position in
// Table.Rows is its stable index used throughout the engine.
type Record map[string]any

// Table is an ordered sequence of Records with a stable column order.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the row count.
func (t Table) Len() int { return len(t.Rows) }

// Value returns the value of column in row i, or nil if the row has no
// such key.
func (t Table) Value(i int, column string) any {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][column]
}

// MatchConfig is the closed set of configuration options from §6.
type MatchConfig struct {
	FuzzyColumns         []string       `json:"fuzzy_columns"`
	ExactColumns         []string       `json:"exact_columns"`
	Thresholds           map[string]int `json:"thresholds"`
	OverallThreshold     int            `json:"overall_threshold"`
	MaxBlockSize         int            `json:"max_block_size"`
	Parallelism          int            `json:"parallelism"`
	LengthPrefilterSlack int            `json:"length_prefilter_slack"`

	// Source names this batch's source system, used to resolve its
	// winning criterion in Rulebook. Deduplicate defaults it to "".
	Source string `json:"source,omitempty"`
	// Rulebook maps a source system to its single-source winning
	// criterion; a missing entry implies "latest_transaction_date".
	Rulebook Rulebook `json:"rulebook,omitempty"`
}

const (
	defaultThreshold        = 90
	defaultOverallThreshold = 90
	defaultMaxBlockSize     = 1000
	defaultPrefilterSlack   = 20
)

// Threshold returns the configured threshold for column, or the default
// of 90 when absent.
func (c MatchConfig) Threshold(column string) int {
	if c.Thresholds != nil {
		if t, ok := c.Thresholds[column]; ok {
			return t
		}
	}
	return defaultThreshold
}

// normalized returns a copy of c with every optional field defaulted.
func (c MatchConfig) normalized() MatchConfig {
	out := c
	if out.OverallThreshold == 0 {
		out.OverallThreshold = defaultOverallThreshold
	}
	if out.MaxBlockSize <= 0 {
		out.MaxBlockSize = defaultMaxBlockSize
	}
	if out.LengthPrefilterSlack == 0 {
		out.LengthPrefilterSlack = defaultPrefilterSlack
	}
	if out.Parallelism <= 0 {
		out.Parallelism = defaultParallelism()
	}
	return out
}

// Rulebook maps a source system to its winning criterion. A missing entry
// implies "latest_transaction_date".
type Rulebook map[string]string

// Winning criteria accepted by the rulebook.
const (
	CriterionLatest   = "latest_transaction_date"
	CriterionEarliest = "earliest_transaction_date"
	CriterionLargest  = "largest_name"
)

// PrecedenceMap maps a source system to its integer precedence (lower
// wins). A missing entry implies the sentinel 999.
type PrecedenceMap map[string]int

const defaultPrecedence = 999

// CustIDColumn is the business-key column every row must carry (spec.md
// §3). The "winner" annotation holds the elected row's value from this
// column, so duplicate-cluster members can be matched back to their
// winner from the output table alone.
const CustIDColumn = "Cust_Id"

// CustID returns rec's business key, or nil if absent.
func CustID(rec Record) any {
	return rec[CustIDColumn]
}

// Annotations holds the per-row data the engine computes, kept separate
// from the original Table per the "no in-place dataframe mutation" design
// note: a parallel vector keyed by row index, joined at output time.
type Annotations struct {
	GroupID           []int
	MatchPercentage   []float64
	FuzzyColumnScores []map[string]float64
	// Winner holds the elected row's Cust_Id for every member of a
	// multi-row cluster (spec.md §3: "for duplicates: winner"); nil for
	// singleton rows, which have no winner to elect.
	Winner []any
	// WinnerSource holds the winning row's Source_System in cross-source
	// mode (spec.md §3: "in cross-source: winner_source"). In single-source
	// mode every row carries the run's source name here.
	WinnerSource []string
}

func newAnnotations(n int) *Annotations {
	return &Annotations{
		GroupID:           make([]int, n),
		MatchPercentage:   make([]float64, n),
		FuzzyColumnScores: make([]map[string]float64, n),
		Winner:            make([]any, n),
		WinnerSource:      make([]string, n),
	}
}

// OutputBundle is the result of a Deduplicate / DeduplicateCross call.
type OutputBundle struct {
	FinalRows               Table      `json:"final_rows"`
	WinnerRows              Table      `json:"winner_rows"`
	DuplicateRowsWithScores Table      `json:"duplicate_rows_with_scores"`
	UniqueRows              Table      `json:"unique_rows"`
	Statistics              Statistics `json:"statistics"`
}

// Statistics summarizes a single engine run.
type Statistics struct {
	InputRecordCount     int                      `json:"input_record_count"`
	FinalRecordCount     int                      `json:"final_record_count"`
	ClusterCount         int                      `json:"cluster_count"`
	DuplicateRecordCount int                      `json:"duplicate_record_count"`
	PhaseTimings         map[string]time.Duration `json:"phase_timings"`
}
