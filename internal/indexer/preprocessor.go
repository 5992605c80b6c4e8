package indexer

import (
	"strings"
	"unicode"
)

// invisible drops format characters office documents leave in text: zero-width spaces
// and joiners, soft hyphens, byte order marks.
var invisible = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\u00ad", "", "\ufeff", "")

// Preprocess removes invisible characters and control codes, then collapses every run of
// whitespace (including non-breaking spaces) to one space.
func Preprocess(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, invisible.Replace(text))
	return strings.Join(strings.Fields(text), " ")
}

// PreprocessLines applies Preprocess per line and drops lines left empty, so tables and
// spreadsheet rows keep one record per line.
func PreprocessLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if line = Preprocess(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
