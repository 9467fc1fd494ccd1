// Package fundamentals supplies externally computed F-Scores to the pipeline.
package fundamentals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"MarketLedger/internal/model"

	"gopkg.in/yaml.v3"
)

// Source returns F-Scores for a symbol keyed by model.DateKey.
type Source interface {
	Scores(ctx context.Context, symbol string) (map[string]int, error)
}

// None supplies no scores; every F-Score stays null.
type None struct{}

func (None) Scores(context.Context, string) (map[string]int, error) { return nil, nil }

// File is a Source backed by a YAML document of the form
//
//	RELIANCE:
//	  "2024-01-02": 7
type File struct {
	scores map[string]map[string]int
}

// LoadFile reads and validates a scores file. A missing file yields an empty source.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{scores: map[string]map[string]int{}}, nil
		}
		return nil, fmt.Errorf("read fundamentals file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scores document. Symbols are upper-cased and dates normalized.
func Parse(data []byte) (*File, error) {
	var raw map[string]map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fundamentals: %w", err)
	}
	f := &File{scores: make(map[string]map[string]int, len(raw))}
	for symbol, byDate := range raw {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		out := make(map[string]int, len(byDate))
		for day, score := range byDate {
			d, err := model.ParseDate(day)
			if err != nil {
				return nil, fmt.Errorf("fundamentals %s: bad date %q: %w", symbol, day, err)
			}
			if score < 0 || score > 9 {
				return nil, fmt.Errorf("fundamentals %s %s: score %d outside [0, 9]", symbol, day, score)
			}
			out[model.DateKey(d)] = score
		}
		f.scores[symbol] = out
	}
	return f, nil
}

func (f *File) Scores(_ context.Context, symbol string) (map[string]int, error) {
	return f.scores[strings.ToUpper(symbol)], nil
}

// Symbols returns how many symbols carry scores.
func (f *File) Symbols() int { return len(f.scores) }
