package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

// LoadRulebook reads a source_system -> winning_criteria mapping from a
// JSON file. A missing file path returns an empty rulebook rather than
// an error, so callers can rely on the engine's own default criterion.
func LoadRulebook(path string) (dedup.Rulebook, error) {
	if path == "" {
		return dedup.Rulebook{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read rulebook %s: %w", path, err)
	}
	var rb dedup.Rulebook
	if err := json.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("config: parse rulebook %s: %w", path, err)
	}
	return rb, nil
}

// LoadPrecedence reads a source_system -> precedence mapping from a JSON
// file. A missing file path returns an empty map, so every source falls
// back to the engine's sentinel precedence.
func LoadPrecedence(path string) (dedup.PrecedenceMap, error) {
	if path == "" {
		return dedup.PrecedenceMap{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read precedence map %s: %w", path, err)
	}
	var pm dedup.PrecedenceMap
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, fmt.Errorf("config: parse precedence map %s: %w", path, err)
	}
	return pm, nil
}
