// Package extract turns corpus files into ordered raw blocks with structural hints.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// Extractor parses supported document formats into RawBlocks.
type Extractor struct {
	// classifier decides headings in styled documents (.docx).
	classifier StructuralClassifier
	// textClassifier decides headings in formats without styling (.txt, .md, .pdf, .odt, .rtf).
	textClassifier StructuralClassifier
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithClassifier replaces the heading classifier used for styled documents.
func WithClassifier(c StructuralClassifier) ExtractorOption {
	return func(e *Extractor) { e.classifier = c }
}

// WithTextClassifier replaces the heading classifier used for plain-text formats.
func WithTextClassifier(c StructuralClassifier) ExtractorOption {
	return func(e *Extractor) { e.textClassifier = c }
}

// NewExtractor returns an Extractor using SOPClassifier for .docx and TextClassifier elsewhere.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		classifier:     NewSOPClassifier(),
		textClassifier: TextClassifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedExtensions lists the extensions Extract understands.
var SupportedExtensions = []string{".docx", ".xlsx", ".ods", ".odt", ".rtf", ".pdf", ".pptx", ".odp", ".txt", ".md"}

// Supports reports whether ext (with leading dot, any case) is a supported format.
func Supports(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its blocks in document order.
// Any failure is returned as *models.ParseError.
func (e *Extractor) Extract(path string) ([]models.RawBlock, error) {
	ext := strings.ToLower(filepath.Ext(path))
	source := filepath.Base(path)
	var (
		blocks []models.RawBlock
		err    error
	)
	if ext == ".odt" || ext == ".rtf" {
		blocks, err = parseOffice(path, source, e.textClassifier)
	} else {
		var content []byte
		content, err = os.ReadFile(path)
		if err != nil {
			return nil, &models.ParseError{Path: path, Err: fmt.Errorf("read file: %w", err)}
		}
		blocks, err = e.parse(content, ext, source)
	}
	if err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	return blocks, nil
}

// ExtractBytes parses content as a file of the given extension. source names the file in
// the returned blocks. ext should include the leading dot (e.g. ".docx").
func (e *Extractor) ExtractBytes(content []byte, ext, source string) ([]models.RawBlock, error) {
	ext = strings.ToLower(ext)
	var (
		blocks []models.RawBlock
		err    error
	)
	if ext == ".odt" || ext == ".rtf" {
		blocks, err = parseOfficeBytes(content, ext, source, e.textClassifier)
	} else {
		blocks, err = e.parse(content, ext, source)
	}
	if err != nil {
		return nil, &models.ParseError{Path: source, Err: err}
	}
	return blocks, nil
}

func (e *Extractor) parse(content []byte, ext, source string) ([]models.RawBlock, error) {
	switch ext {
	case ".docx":
		return parseDOCX(content, source, e.classifier)
	case ".xlsx":
		return parseExcel(content, source)
	case ".ods":
		return parseODS(content, source)
	case ".pptx":
		return parsePPTX(content, source)
	case ".odp":
		return parseODP(content, source)
	case ".pdf":
		return parsePDF(content, source, anyHeading(e.classifier, e.textClassifier))
	case ".txt", ".md":
		return parsePlain(content, source, e.textClassifier), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}
