package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// LoadScores reads the AI layer's per-cycle composite-score output
// (aiOutputDir/scores.json, an array of strategy.StockScore — the shape
// already carries the json tags for this exact file) and indexes it by
// symbol for Tier-2 seeding.
func LoadScores(aiOutputDir string) (map[string]strategy.StockScore, error) {
	path := filepath.Join(aiOutputDir, "scores.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]strategy.StockScore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read scores file %s: %w", path, err)
	}

	var scores []strategy.StockScore
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("orchestrator: parse scores file %s: %w", path, err)
	}

	byTicker := make(map[string]strategy.StockScore, len(scores))
	for _, s := range scores {
		byTicker[s.Symbol] = s
	}
	return byTicker, nil
}

// LoadUniverse reads the Tier-1 scan candidate list
// (aiOutputDir/universe.json, a JSON array of ticker symbols).
func LoadUniverse(aiOutputDir string) ([]string, error) {
	path := filepath.Join(aiOutputDir, "universe.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read universe file %s: %w", path, err)
	}

	var universe []string
	if err := json.Unmarshal(raw, &universe); err != nil {
		return nil, fmt.Errorf("orchestrator: parse universe file %s: %w", path, err)
	}
	return universe, nil
}
