// Package cli provides CLI output helpers for manabu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("invalid output format %q (use text or json)", s)
}

const separator = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieveResponse writes retrieval results to w in the given format.
func WriteRetrieveResponse(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.NoRelevantContext {
		fmt.Fprintf(w, "\nNo relevant context found for %q (%dms)\n", resp.Query, resp.QueryTime)
		writeSuggestions(w, resp.Suggestions)
		return nil
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(resp.Results), resp.QueryTime)
	for _, r := range resp.Results {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", r.Rank, r.Score, kindLabel(r.Chunk))
		fmt.Fprintf(w, "File: %s\n", r.SourceFile)
		fmt.Fprintf(w, "Section: %s\n", r.SectionLabel)
		fmt.Fprintf(w, "\n%s\n\n", Truncate(r.Text, 300))
	}
	return nil
}

// WriteAskResponse writes an answer and its sources to w in the given format.
func WriteAskResponse(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Answer)
	if resp.NoRelevantContext {
		writeSuggestions(w, resp.Suggestions)
		return nil
	}
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, src := range resp.Sources {
			fmt.Fprintf(w, "  - %s: %s\n", src.File, src.Label)
			if src.Related != "" {
				fmt.Fprintf(w, "    %s\n", src.Related)
			}
		}
	}
	return nil
}

// WriteBuildReport writes a build summary to w in the given format.
func WriteBuildReport(w io.Writer, report *indexer.BuildReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Indexed %d chunks from %d files in %s (model %s, %d dims)\n",
		report.Chunks, report.Files, report.Duration.Round(time.Millisecond), report.Model, report.Dimensions)
	for _, src := range report.Sources {
		fmt.Fprintf(w, "  %-40s %4d chunks\n", src.Name, src.Chunks)
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d files:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Error)
		}
	}
	return nil
}

func writeSuggestions(w io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(suggestions, ", "))
}

func kindLabel(c *models.Chunk) string {
	if c.IsFAQ() {
		return "FAQ"
	}
	return "SOP"
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
