package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/retrieval"
)

// ExtractiveGenerator answers without a language model: it quotes the best FAQ answer or
// procedure section and lists the sources. It never fails.
type ExtractiveGenerator struct{}

// Name returns "extractive".
func (ExtractiveGenerator) Name() string { return "extractive" }

// Generate implements Generator.
func (ExtractiveGenerator) Generate(ctx context.Context, query string, result *models.RetrievalResult) (string, error) {
	if result.Len() == 0 {
		return FallbackAnswer, nil
	}
	top := result.Chunks[0].Chunk
	var b strings.Builder
	if answer := top.Metadata[models.MetaAnswer]; top.IsFAQ() && answer != "" {
		b.WriteString(answer)
	} else {
		b.WriteString(top.Text)
	}
	b.WriteString("\n\n")
	var related string
	for _, src := range retrieval.Sources(result) {
		fmt.Fprintf(&b, "Source: %s - %s\n", src.File, src.Label)
		if related == "" && src.Related != "" {
			related = src.Related
		}
	}
	if related != "" {
		fmt.Fprintf(&b, "Related Resource: %s\n", related)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
