// Package elect picks the surviving winner row of each cluster, by the
// single-source rulebook criteria or the cross-source precedence map.
package elect

import (
	"strings"
	"time"

	"github.com/fuzzydedup/dedup/internal/dedup/dederr"
)

// transactionDateColumns lists the aliases tried, in order, when
// resolving which column holds a row's transaction date.
var transactionDateColumns = []string{
	"Transaction Date", "Transaction_Date", "transaction_date", "TransactionDate", "Date", "date",
}

// nameColumns lists the aliases tried, in order, for the "largest_name"
// criterion.
var nameColumns = []string{"first_name", "First_Name", "firstName", "FirstName", "fname", "name"}

const syntheticEpoch = "2023-01-01"

// Row is the minimal view of a row elect needs: its column values and
// its stable index in the original table.
type Row struct {
	Index  int
	Values map[string]any
}

// Config configures Elect.
type Config struct {
	// Source is this batch's source system name, used by Elect to look up
	// the rulebook criterion. ElectCross does not read it; it uses each
	// row's own Source_System.
	Source string
	// Rulebook maps a source system to its single-source winning
	// criterion. A missing entry implies "latest_transaction_date".
	Rulebook map[string]string
	// Precedence maps a source system to an integer precedence, lower
	// wins. A missing entry implies the sentinel 999. Only consulted
	// by ElectCross.
	Precedence map[string]int
}

const (
	criterionLatest   = "latest_transaction_date"
	criterionEarliest = "earliest_transaction_date"
	criterionLargest  = "largest_name"

	defaultPrecedence = 999
)

// Outcome is the result of electing a winner within one cluster.
type Outcome struct {
	WinnerIndex int
	Criterion   string
}

// Elect picks the winner of a single-source cluster per cfg.Rulebook.
// Ties are broken by lowest row index.
func Elect(members []Row, cfg Config) (Outcome, error) {
	if len(members) == 0 {
		return Outcome{}, dederr.NewDataError("elect: empty cluster", nil)
	}

	criterion := cfg.Rulebook[cfg.Source]
	if criterion == "" {
		criterion = criterionLatest
	}

	switch criterion {
	case criterionLatest, criterionEarliest:
		return electByDate(members, criterion), nil
	case criterionLargest:
		if !anyHasName(members) {
			return electByDate(members, criterionLatest), nil
		}
		return electByName(members), nil
	default:
		return Outcome{}, dederr.NewConfigError("elect: unknown winning criterion "+criterion, nil)
	}
}

// anyHasName reports whether any member carries a value under a known
// name-column alias; largest_name falls back to latest_transaction_date
// when the table has no name column at all.
func anyHasName(members []Row) bool {
	for _, m := range members {
		for _, col := range nameColumns {
			if v, ok := m.Values[col]; ok && v != nil {
				return true
			}
		}
	}
	return false
}

// sourceSystemColumns lists the aliases tried, in order, for a row's
// Source_System value.
var sourceSystemColumns = []string{"Source_System", "source_system", "SourceSystem"}

// ElectCross picks the winner of a cross-source cluster: the member
// whose own Source_System carries the lowest cfg.Precedence (missing
// entries fall back to the sentinel 999), ties broken by lowest row
// index. Unlike Elect, it never consults a rulebook criterion — per-row
// precedence is the only ranking signal in cross-source mode.
func ElectCross(members []Row, cfg Config) (Outcome, error) {
	if len(members) == 0 {
		return Outcome{}, dederr.NewDataError("elect: empty cross-source cluster", nil)
	}

	best := members[0]
	bestPrecedence := precedenceOf(best, cfg.Precedence)
	for _, m := range members[1:] {
		precedence := precedenceOf(m, cfg.Precedence)
		if precedence < bestPrecedence || (precedence == bestPrecedence && m.Index < best.Index) {
			best, bestPrecedence = m, precedence
		}
	}
	return Outcome{WinnerIndex: best.Index, Criterion: "precedence"}, nil
}

// SourceSystem resolves a row's Source_System value under any known
// column alias.
func SourceSystem(r Row) string {
	for _, col := range sourceSystemColumns {
		if v, ok := r.Values[col]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func precedenceOf(r Row, precedence map[string]int) int {
	if precedence != nil {
		if p, ok := precedence[SourceSystem(r)]; ok {
			return p
		}
	}
	return defaultPrecedence
}

func electByDate(members []Row, criterion string) Outcome {
	best := members[0]
	bestDate := resolveDate(best)
	for _, m := range members[1:] {
		date := resolveDate(m)
		switch criterion {
		case criterionEarliest:
			if date.Before(bestDate) || (date.Equal(bestDate) && m.Index < best.Index) {
				best, bestDate = m, date
			}
		default: // criterionLatest
			if date.After(bestDate) || (date.Equal(bestDate) && m.Index < best.Index) {
				best, bestDate = m, date
			}
		}
	}
	return Outcome{WinnerIndex: best.Index, Criterion: criterion}
}

func electByName(members []Row) Outcome {
	best := members[0]
	bestName := resolveName(best)
	for _, m := range members[1:] {
		name := resolveName(m)
		if len(name) > len(bestName) || (len(name) == len(bestName) && m.Index < best.Index) {
			best, bestName = m, name
		}
	}
	return Outcome{WinnerIndex: best.Index, Criterion: criterionLargest}
}

// resolveDate finds the row's transaction date under any known alias,
// parsing it loosely; if no alias is present or none parse, it falls
// back to a synthetic, deterministic date derived from the row's index
// so that ties remain resolvable and ordering stays stable.
func resolveDate(r Row) time.Time {
	for _, col := range transactionDateColumns {
		v, ok := r.Values[col]
		if !ok || v == nil {
			continue
		}
		if t, ok := parseDate(v); ok {
			return t
		}
	}
	epoch, _ := time.Parse("2006-01-02", syntheticEpoch)
	return epoch.AddDate(0, 0, r.Index)
}

func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{
			time.RFC3339, "2006-01-02", "2006-01-02 15:04:05", "01/02/2006", "02/01/2006",
		} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func resolveName(r Row) string {
	for _, col := range nameColumns {
		v, ok := r.Values[col]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
