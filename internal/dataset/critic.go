package dataset

import (
	"io"
	"strconv"

	"gametrack/internal/titlekey"
)

type criticEntry struct {
	metascore int
	platforms []string
}

// CriticIndex answers critic-score lookups from a Metacritic export.
type CriticIndex struct {
	entries map[string][]criticEntry
}

// LoadCritic parses a CSV with title, platform, and metascore columns. Rows
// without a numeric metascore are ignored.
func LoadCritic(r io.Reader) (*CriticIndex, error) {
	idx := &CriticIndex{entries: make(map[string][]criticEntry)}
	err := eachRecord(r, []string{"title", "metascore"}, func(cols columnIndex, rec []string) {
		key := titlekey.Normalize(cols.get(rec, "title"))
		if key == "" {
			return
		}
		score, err := strconv.Atoi(cols.get(rec, "metascore"))
		if err != nil || score < 0 || score > 100 {
			return
		}
		idx.entries[key] = append(idx.entries[key], criticEntry{
			metascore: score,
			platforms: splitPlatforms(cols.get(rec, "platform")),
		})
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadCriticFile loads the critic index from disk.
func LoadCriticFile(path string) (*CriticIndex, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadCritic(file)
}

// Len reports the number of distinct title keys.
func (c *CriticIndex) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// LookupCriticScore returns the highest metascore among matching entries.
func (c *CriticIndex) LookupCriticScore(title, platform string) (int, bool) {
	if c == nil {
		return 0, false
	}
	entries := c.entries[titlekey.Normalize(title)]
	if len(entries) == 0 {
		return 0, false
	}
	candidates := filterByPlatform(entries, platform, func(e criticEntry) []string { return e.platforms })
	best := candidates[0]
	for _, entry := range candidates[1:] {
		if entry.metascore > best.metascore {
			best = entry
		}
	}
	return best.metascore, true
}
