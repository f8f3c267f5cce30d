// Package score implements the pairwise match predicate: an exact-column
// gate, a length pre-filter, a fuzzy ratio per fuzzy column, and an
// overall-threshold gate, short-circuiting on the first failure.
package score

import (
	"github.com/xrash/smetrics"

	"github.com/fuzzydedup/dedup/internal/dedup/normalize"
)

// Config carries the subset of MatchConfig the scorer needs.
type Config struct {
	FuzzyColumns         []string
	ExactColumns         []string
	Thresholds           map[string]int
	OverallThreshold     int
	LengthPrefilterSlack int
}

func (c Config) threshold(col string) int {
	if c.Thresholds != nil {
		if t, ok := c.Thresholds[col]; ok {
			return t
		}
	}
	return 90
}

// Result is the outcome of scoring one ordered pair.
type Result struct {
	Matched   bool
	Overall   float64
	PerColumn map[string]float64
}

// Pair decides match/no-match for row views a and b and, on match,
// returns the overall and per-column scores. Pair is pure and
// commutative: Pair(a, b, cfg) == Pair(b, a, cfg).
func Pair(a, b normalize.View, cfg Config) Result {
	// Step 1: exact-column gate.
	for _, col := range cfg.ExactColumns {
		if a.Values[col] != b.Values[col] {
			return Result{}
		}
	}

	slack := cfg.LengthPrefilterSlack
	if slack == 0 {
		slack = 20
	}

	// Step 2: length pre-filter, per fuzzy column.
	for _, col := range cfg.FuzzyColumns {
		lenA, lenB := a.Lengths[col], b.Lengths[col]
		maxLen, minLen := lenA, lenB
		if minLen > maxLen {
			maxLen, minLen = minLen, maxLen
		}
		if maxLen == 0 {
			continue // empty on both sides: treated as a 100-score match in step 3
		}
		if minLen > 0 {
			threshold := cfg.threshold(col)
			ratio := 100 * minLen / maxLen
			if ratio < threshold-slack {
				return Result{}
			}
		}
	}

	// Step 3: fuzzy ratio per column, short-circuit below threshold.
	perColumn := make(map[string]float64, len(cfg.FuzzyColumns))
	for _, col := range cfg.FuzzyColumns {
		valA, valB := a.Values[col], b.Values[col]
		threshold := cfg.threshold(col)

		var s float64
		if len(valA) == 0 && len(valB) == 0 {
			s = 100
		} else {
			s = ratio(valA, valB)
		}
		perColumn[col] = s
		if s < float64(threshold) {
			return Result{}
		}
	}

	// Step 4: overall threshold on the mean fuzzy score.
	overall := mean(perColumn)
	if len(cfg.FuzzyColumns) > 0 && overall < float64(cfg.OverallThreshold) {
		return Result{}
	}

	return Result{Matched: true, Overall: overall, PerColumn: perColumn}
}

// ratio computes a Levenshtein-ratio-style similarity in [0, 100]:
// 100 * (1 - edits/(len(a)+len(b))), using Wagner-Fischer edit distance.
func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	edits := smetrics.WagnerFischer(a, b, 1, 1, 2)
	score := 100 * (1 - float64(edits)/float64(total))
	if score < 0 {
		score = 0
	}
	return score
}

func mean(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
