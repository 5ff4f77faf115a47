package dataset

import (
	"io"
	"math"
	"strconv"
	"strings"

	"gametrack/internal/titlekey"
)

type playtimeEntry struct {
	hours     float64
	samples   int
	platforms []string
}

// PlaytimeIndex answers time-to-beat lookups from a HowLongToBeat export.
type PlaytimeIndex struct {
	entries map[string][]playtimeEntry
}

// LoadPlaytime parses a CSV with game_game_name, game_comp_main (seconds),
// game_comp_main_count, and platform_platform columns.
func LoadPlaytime(r io.Reader) (*PlaytimeIndex, error) {
	idx := &PlaytimeIndex{entries: make(map[string][]playtimeEntry)}
	err := eachRecord(r, []string{"game_game_name", "game_comp_main"}, func(cols columnIndex, rec []string) {
		key := titlekey.Normalize(cols.get(rec, "game_game_name"))
		if key == "" {
			return
		}
		seconds, err := strconv.ParseFloat(cols.get(rec, "game_comp_main"), 64)
		if err != nil || seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return
		}
		samples, _ := strconv.Atoi(cols.get(rec, "game_comp_main_count"))
		platformRaw := cols.get(rec, "platform_platform")
		if platformRaw == "" {
			platformRaw = cols.get(rec, "game_profile_platform")
		}
		idx.entries[key] = append(idx.entries[key], playtimeEntry{
			hours:     math.Round(seconds/3600*10) / 10,
			samples:   samples,
			platforms: splitPlatforms(platformRaw),
		})
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadPlaytimeFile loads the playtime dataset from disk.
func LoadPlaytimeFile(path string) (*PlaytimeIndex, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadPlaytime(file)
}

// Len reports the number of distinct title keys.
func (p *PlaytimeIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// LookupPlaytime returns hours for the best-sampled entry matching title.
func (p *PlaytimeIndex) LookupPlaytime(title, platform string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	entries := p.entries[titlekey.Normalize(title)]
	if len(entries) == 0 {
		return 0, false
	}
	candidates := filterByPlatform(entries, platform, func(e playtimeEntry) []string { return e.platforms })
	best := candidates[0]
	for _, entry := range candidates[1:] {
		if entry.samples > best.samples {
			best = entry
		}
	}
	return best.hours, true
}

// filterByPlatform keeps entries matching platform, or all entries when none do.
func filterByPlatform[T any](entries []T, platform string, platformsOf func(T) []string) []T {
	if strings.TrimSpace(platform) == "" || titlekey.Platform(platform) == titlekey.PlatformUnknown {
		return entries
	}
	filtered := make([]T, 0, len(entries))
	for _, entry := range entries {
		for _, candidate := range platformsOf(entry) {
			if titlekey.PlatformMatches(platform, candidate) {
				filtered = append(filtered, entry)
				break
			}
		}
	}
	if len(filtered) == 0 {
		return entries
	}
	return filtered
}
