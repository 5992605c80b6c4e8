package retrieval

import (
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// NoDocumentsText is the context block used when retrieval found nothing.
const NoDocumentsText = "(No relevant documents found.)"

// contextSeparator divides source blocks in a formatted context.
const contextSeparator = "\n\n---\n\n"

// FormatContext renders the result as numbered source blocks for a generation prompt.
// Each block starts with a header naming the file and either the FAQ fields or the SOP
// section, followed by the chunk text.
func FormatContext(result *models.RetrievalResult) string {
	if result.Len() == 0 {
		return NoDocumentsText
	}
	blocks := make([]string, 0, result.Len())
	for i, sc := range result.Chunks {
		blocks = append(blocks, sourceHeader(i+1, sc.Chunk)+"\n"+sc.Text)
	}
	return strings.Join(blocks, contextSeparator)
}

func sourceHeader(n int, c *models.Chunk) string {
	parts := []string{fmt.Sprintf("[Source %d]", n), "File: " + c.SourceFile}
	if c.IsFAQ() {
		parts = append(parts, "Type: FAQ")
		for _, f := range []struct{ key, label string }{
			{models.MetaTopic, "Topic"},
			{models.MetaLocation, "Location"},
			{models.MetaQuestion, "Question"},
			{models.MetaResourceLink, "Resource Link"},
		} {
			if v := c.Metadata[f.key]; v != "" {
				parts = append(parts, f.label+": "+v)
			}
		}
	} else {
		parts = append(parts, "Type: SOP", "Section: "+c.SectionLabel)
	}
	return strings.Join(parts, " | ")
}

// Sources returns one citation per distinct source in rank order. FAQ rows are distinct
// by question, document sections by file and section.
func Sources(result *models.RetrievalResult) []*models.Source {
	if result.Len() == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []*models.Source
	for _, sc := range result.Chunks {
		c := sc.Chunk
		src := &models.Source{File: c.SourceFile, Label: c.SectionLabel, IsFAQ: c.IsFAQ()}
		var key string
		if c.IsFAQ() {
			question := c.Metadata[models.MetaQuestion]
			if question == "" {
				question = c.SectionLabel
			}
			src.Label = question
			src.Related = c.Metadata[models.MetaResourceLink]
			key = "faq\x00" + question
		} else {
			key = "sop\x00" + c.SourceFile + "\x00" + c.SectionLabel
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, src)
	}
	return out
}
