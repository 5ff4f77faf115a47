package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"gametrack/internal/enrich"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

const statusLabelWidth = 18

func shouldColorize(writer io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func renderField(label, value string) string {
	return fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", value)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, ansiBlue, colorize), paint(rule, ansiBlue, colorize)}
}

func phaseColor(phase enrich.Phase) string {
	switch phase {
	case enrich.PhaseActive, enrich.PhaseInit:
		return ansiGreen
	case enrich.PhasePaused:
		return ansiYellow
	case enrich.PhaseDone:
		return ansiBlue
	default:
		return ansiDim
	}
}

func statusColor(status enrich.RowStatus) string {
	switch status {
	case enrich.StatusDone:
		return ansiGreen
	case enrich.StatusError:
		return ansiRed
	case enrich.StatusPaused, enrich.StatusSkipped:
		return ansiYellow
	case enrich.StatusFetching:
		return ansiBlue
	default:
		return ""
	}
}

// progressLine summarizes a snapshot on one line for streaming output.
func progressLine(snap enrich.Snapshot, colorize bool) string {
	phase := string(snap.Phase)
	if phase == "" {
		phase = string(enrich.PhaseIdle)
	}
	line := fmt.Sprintf("[%s] %d/%d rows", paint(phase, phaseColor(snap.Phase), colorize), snap.CompletedCount, snap.TotalRows)
	if n := len(snap.ActiveRowIDs); n > 0 {
		line += fmt.Sprintf(", %d active", n)
	}
	if snap.Message != "" {
		line += " - " + snap.Message
	}
	return line
}

func formatPrice(price *float64, currency string) string {
	if price == nil {
		return "-"
	}
	value := strconv.FormatFloat(*price, 'f', 2, 64)
	if currency = strings.TrimSpace(currency); currency != "" {
		return value + " " + currency
	}
	return value
}

func formatHours(hours *float64, source string) string {
	if hours == nil {
		return "-"
	}
	return withSource(strconv.FormatFloat(*hours, 'f', -1, 64)+"h", source)
}

func formatScore(score *int, source string) string {
	if score == nil {
		return "-"
	}
	return withSource(strconv.Itoa(*score), source)
}

func withSource(value, source string) string {
	if source = strings.TrimSpace(source); source != "" {
		return value + " (" + source + ")"
	}
	return value
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
