// Package models defines core data structures for blocks, chunks, and retrieval results.
package models

// BlockKind is the structural hint a parser attaches to a raw block.
type BlockKind string

const (
	BlockHeading BlockKind = "HEADING"
	BlockBody    BlockKind = "BODY"
	BlockRow     BlockKind = "ROW"
)

// RawBlock is one unit of text produced by a parser, before chunk assembly.
type RawBlock struct {
	Text       string    `json:"text"`
	Kind       BlockKind `json:"kind"`
	SourceFile string    `json:"source_file"`
	// Position is the ordinal within the file. For spreadsheet rows it is the sheet row number.
	Position int `json:"position"`
	// Fields holds the header -> value pairs of a ROW block, in header order.
	Fields []Field `json:"fields,omitempty"`
	// Sheet is the worksheet a ROW block came from.
	Sheet string `json:"sheet,omitempty"`
}

// Field is a named spreadsheet cell value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ChunkKind distinguishes document sections from spreadsheet rows.
type ChunkKind string

const (
	ChunkSection ChunkKind = "SECTION"
	ChunkRow     ChunkKind = "ROW"
)

// Metadata keys stored on FAQ row chunks.
const (
	MetaTopic        = "topic"
	MetaLocation     = "location"
	MetaQuestion     = "question"
	MetaAnswer       = "answer"
	MetaResourceLink = "resource_link"
	MetaSheet        = "sheet"
)

// Chunk is the atomic retrievable unit. It is immutable once the index is built.
type Chunk struct {
	ID           int64             `json:"id" db:"id"`
	Text         string            `json:"text" db:"text"`
	SourceFile   string            `json:"source_file" db:"source_file"`
	SectionLabel string            `json:"section_label" db:"section_label"`
	Kind         ChunkKind         `json:"kind" db:"kind"`
	Metadata     map[string]string `json:"metadata,omitempty" db:"metadata"`
}

// IsFAQ reports whether the chunk came from a spreadsheet row.
func (c *Chunk) IsFAQ() bool {
	return c.Kind == ChunkRow
}

// SourceDocument describes one corpus file that contributed chunks.
type SourceDocument struct {
	Name      string `json:"name" db:"name"`
	Path      string `json:"path" db:"path"`
	Format    string `json:"format" db:"format"`
	Chunks    int    `json:"chunks" db:"chunks"`
	SizeBytes int64  `json:"size_bytes" db:"size_bytes"`
}
