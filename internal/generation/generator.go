// Package generation turns retrieved context into an answer with citations.
package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/retrieval"
)

// FallbackAnswer is returned when the knowledge base holds nothing relevant.
const FallbackAnswer = "I wasn't able to find an answer to that in our current knowledge base. " +
	"Please reach out to your manager or the relevant department for assistance."

// SystemPrompt instructs the answer model to stay within the retrieved context.
const SystemPrompt = `You are manabu, an internal knowledge assistant. You answer employee questions using only the company documents provided in the context.

Rules:
1. Answer strictly from the context. Do not use outside knowledge or guess.
2. If the context does not contain enough information, reply exactly with: "` + FallbackAnswer + `"
3. End every answer with the sources you used: the document name and section for procedures, or the FAQ topic and question for FAQ entries.
4. Pay attention to Location metadata. When an answer applies only to a specific location, say so.
5. Be concise. Use bullet points or numbered steps for procedures.
6. Cite sources in this format:
   Source: <file> - <section or question>
7. When a source carries a Resource Link, add a final line:
   Related Resource: <link>`

// Generator produces an answer to query from a non-empty retrieval result.
type Generator interface {
	Generate(ctx context.Context, query string, result *models.RetrievalResult) (string, error)
	// Name identifies the provider in responses and logs.
	Name() string
}

// UserPrompt renders the retrieved context and the question as the user turn of a
// chat request.
func UserPrompt(query string, result *models.RetrievalResult) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", retrieval.FormatContext(result), query)
}
