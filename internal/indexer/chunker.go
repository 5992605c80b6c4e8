// Package indexer turns a corpus directory into chunks, embeddings and a built vector index.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// paragraphBreak joins the heading and body paragraphs of a section chunk.
const paragraphBreak = "\n\n"

// Chunker assembles structural chunks from the raw blocks of one file. Sections and rows
// are never split by length.
type Chunker struct {
	// LabelField names the spreadsheet column used as a row chunk's section label
	// (case-insensitive). Rows without it are labelled "Row N".
	LabelField string
}

// NewChunker returns a Chunker that labels rows by labelField.
func NewChunker(labelField string) *Chunker {
	return &Chunker{LabelField: labelField}
}

type section struct {
	label string
	parts []string
}

// Chunk converts the ordered blocks of one file into chunks tagged with source. A HEADING
// starts a section that collects the following BODY blocks; BODY blocks before the first
// heading form a section labelled with the file name. Each ROW block becomes one chunk.
// Chunk ids are left zero for the caller to assign.
func (c *Chunker) Chunk(blocks []models.RawBlock, source string) []*models.Chunk {
	var (
		chunks []*models.Chunk
		cur    *section
	)
	flush := func() {
		if cur == nil {
			return
		}
		if text := strings.Join(cur.parts, paragraphBreak); strings.TrimSpace(text) != "" {
			chunks = append(chunks, &models.Chunk{
				Text:         text,
				SourceFile:   source,
				SectionLabel: cur.label,
				Kind:         models.ChunkSection,
			})
		}
		cur = nil
	}

	for _, b := range blocks {
		switch b.Kind {
		case models.BlockHeading:
			flush()
			heading := Preprocess(b.Text)
			if heading == "" {
				continue
			}
			cur = &section{label: heading, parts: []string{heading}}
		case models.BlockRow:
			flush()
			if chunk := c.rowChunk(b, source); chunk != nil {
				chunks = append(chunks, chunk)
			}
		default:
			body := PreprocessLines(b.Text)
			if body == "" {
				continue
			}
			if cur == nil {
				cur = &section{label: source}
			}
			cur.parts = append(cur.parts, body)
		}
	}
	flush()
	return chunks
}

func (c *Chunker) rowChunk(b models.RawBlock, source string) *models.Chunk {
	text := PreprocessLines(b.Text)
	if text == "" {
		return nil
	}
	label := ""
	metadata := make(map[string]string)
	for _, f := range b.Fields {
		value := Preprocess(f.Value)
		if value == "" {
			continue
		}
		if label == "" && c.LabelField != "" && strings.EqualFold(strings.TrimSpace(f.Name), c.LabelField) {
			label = value
		}
		if key := faqKey(f.Name); key != "" {
			if _, ok := metadata[key]; !ok {
				metadata[key] = value
			}
		}
	}
	if label == "" {
		label = fmt.Sprintf("Row %d", b.Position)
	}
	if b.Sheet != "" {
		metadata[models.MetaSheet] = b.Sheet
	}
	return &models.Chunk{
		Text:         text,
		SourceFile:   source,
		SectionLabel: label,
		Kind:         models.ChunkRow,
		Metadata:     metadata,
	}
}

// faqKey maps a spreadsheet header to a canonical metadata key by the words it contains.
// The first matching word wins, checked in the order topic, location, question, answer,
// resource/link.
func faqKey(header string) string {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "topic"):
		return models.MetaTopic
	case strings.Contains(h, "location"):
		return models.MetaLocation
	case strings.Contains(h, "question"):
		return models.MetaQuestion
	case strings.Contains(h, "answer"):
		return models.MetaAnswer
	case strings.Contains(h, "resource"), strings.Contains(h, "link"):
		return models.MetaResourceLink
	}
	return ""
}
