// Package block partitions row indices into candidate blocks such that
// any true duplicate pair is expected to lie within some block, trading
// recall for a sub-quadratic comparison space.
package block

import (
	"fmt"

	"github.com/fuzzydedup/dedup/internal/dedup/normalize"
)

// Mode names the blocking rule that was applied, for logging (the prefix
// fallback must be surfaced — spec open question).
const (
	ModeExact      = "exact"
	ModePrefix     = "prefix"
	ModeDegenerate = "degenerate"
)

// Config configures Build.
type Config struct {
	ExactColumns []string
	FuzzyColumns []string
	MaxBlockSize int
}

// Block is a set of row indices in which all pairs are candidates.
type Block struct {
	Key     string
	Indices []int
}

const keySeparator = "||"

// Build partitions the views into blocks per rules B1 (exact-column
// blocking), B2 (fuzzy-prefix fallback), and B3 (degenerate single
// block), then splits any block over cfg.MaxBlockSize into contiguous
// slices. Blocks of size 1 are returned separately as pre-assigned
// singletons rather than emitted as degenerate one-element blocks.
func Build(views []normalize.View, cfg Config) (blocks []Block, singletons []int, mode string) {
	maxBlockSize := cfg.MaxBlockSize
	if maxBlockSize <= 0 {
		maxBlockSize = 1000
	}

	raw := make(map[string][]int)

	switch {
	case len(cfg.ExactColumns) > 0:
		mode = ModeExact
		cols := cfg.ExactColumns
		if len(cols) > 2 {
			cols = cols[:2]
		}
		for i, v := range views {
			key := exactKey(v, cols)
			raw[key] = append(raw[key], i)
		}

	case len(cfg.FuzzyColumns) > 0:
		mode = ModePrefix
		col := cfg.FuzzyColumns[0]
		for i, v := range views {
			key := prefixKey(v, col)
			raw[key] = append(raw[key], i)
		}

	default:
		mode = ModeDegenerate
		all := make([]int, len(views))
		for i := range views {
			all[i] = i
		}
		raw["all"] = all
	}

	for key, indices := range raw {
		if len(indices) == 1 {
			singletons = append(singletons, indices[0])
			continue
		}
		if len(indices) <= maxBlockSize {
			blocks = append(blocks, Block{Key: key, Indices: indices})
			continue
		}
		for start := 0; start < len(indices); start += maxBlockSize {
			end := start + maxBlockSize
			if end > len(indices) {
				end = len(indices)
			}
			chunk := indices[start:end]
			if len(chunk) == 1 {
				singletons = append(singletons, chunk[0])
				continue
			}
			blocks = append(blocks, Block{
				Key:     fmt.Sprintf("%s/split%d", key, start/maxBlockSize),
				Indices: chunk,
			})
		}
	}

	return blocks, singletons, mode
}

func exactKey(v normalize.View, cols []string) string {
	key := ""
	for i, col := range cols {
		if i > 0 {
			key += keySeparator
		}
		key += v.Values[col]
	}
	return key
}

func prefixKey(v normalize.View, col string) string {
	val := v.Values[col]
	if len(val) < 3 {
		return val
	}
	lengthGroup := len(val) / 5
	return fmt.Sprintf("%s%d", val[:3], lengthGroup)
}
