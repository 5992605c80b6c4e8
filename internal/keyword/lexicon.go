// Package keyword builds the corpus vocabulary and suggests spelling corrections for
// queries that retrieve nothing.
package keyword

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// TermDictionary provides access to the term dictionary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the corpus.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the number of chunks containing the term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term occurs in the corpus.
	ContainsTerm(term string) (bool, error)
}

const textField = "text"

// Lexicon is the set of terms occurring in the chunk texts, with chunk frequencies.
// Terms are produced by bleve's standard analyzer (lowercased, English stop words
// removed, no stemming) so suggestions are words a user would type.
type Lexicon struct {
	terms   []string
	freq    map[string]int
	analyze func([]byte) analysis.TokenStream
}

// NewLexicon indexes texts into an in-memory bleve index and reads back its field dictionary.
func NewLexicon(texts []string) (*Lexicon, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = standard.Name
	fm.Store = false
	fm.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(textField, fm)
	im.DefaultMapping = docMapping

	analyzer := im.AnalyzerNamed(standard.Name)
	if analyzer == nil {
		return nil, fmt.Errorf("bleve analyzer %q not registered", standard.Name)
	}

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexicon index: %w", err)
	}
	defer index.Close()

	batch := index.NewBatch()
	for i, text := range texts {
		if err := batch.Index(strconv.Itoa(i), map[string]interface{}{textField: text}); err != nil {
			return nil, fmt.Errorf("failed to index text %d: %w", i, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to index texts: %w", err)
	}

	dict, err := index.FieldDict(textField)
	if err != nil {
		return nil, fmt.Errorf("failed to read field dictionary: %w", err)
	}
	defer dict.Close()

	lex := &Lexicon{freq: make(map[string]int), analyze: analyzer.Analyze}
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read field dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		lex.terms = append(lex.terms, entry.Term)
		lex.freq[entry.Term] = int(entry.Count)
	}
	sort.Strings(lex.terms)
	return lex, nil
}

// Len returns the vocabulary size.
func (l *Lexicon) Len() int {
	return len(l.terms)
}

// GetAllTerms implements TermDictionary.
func (l *Lexicon) GetAllTerms() ([]string, error) {
	return l.terms, nil
}

// GetTermFrequency implements TermDictionary.
func (l *Lexicon) GetTermFrequency(term string) (int, error) {
	return l.freq[term], nil
}

// ContainsTerm implements TermDictionary.
func (l *Lexicon) ContainsTerm(term string) (bool, error) {
	_, ok := l.freq[term]
	return ok, nil
}

// IsStopWord reports whether the analyzer drops word entirely.
func (l *Lexicon) IsStopWord(word string) bool {
	return len(l.analyze([]byte(word))) == 0
}
