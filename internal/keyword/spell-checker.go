package keyword

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Suggestion is a dictionary term close to a query word.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// StopWordChecker is implemented by dictionaries that know which words their analyzer
// discards. Stop words are never reported as misspelled.
type StopWordChecker interface {
	IsStopWord(word string) bool
}

// SpellChecker proposes corrected queries from a TermDictionary. It is safe for
// concurrent use once constructed.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
	minWordLength  int

	terms []string
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms found in fewer than f chunks.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions returned per word.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithMinWordLength leaves words shorter than n runes uncorrected.
func WithMinWordLength(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.minWordLength = n
		}
	}
}

// NewSpellChecker loads the dictionary terms and returns a SpellChecker.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) (*SpellChecker, error) {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		minWordLength:  3,
	}
	for _, opt := range opts {
		opt(s)
	}
	terms, err := dict.GetAllTerms()
	if err != nil {
		return nil, err
	}
	s.terms = terms
	return s, nil
}

// Check splits query into words and proposes a replacement for each word that is not in
// the dictionary. The corrected query is the words joined by single spaces, lowercased.
func (s *SpellChecker) Check(query string) *SpellCheckResult {
	result := &SpellCheckResult{OriginalQuery: query}
	words := splitWords(query)
	corrected := make([]string, 0, len(words))
	for _, word := range words {
		if !s.IsMisspelled(word) {
			corrected = append(corrected, word)
			continue
		}
		suggestions := s.Suggest(word)
		if len(suggestions) == 0 {
			corrected = append(corrected, word)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, word)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result
}

// IsMisspelled reports whether word is a correction candidate: long enough, not numeric,
// not a stop word and absent from the dictionary.
func (s *SpellChecker) IsMisspelled(word string) bool {
	word = strings.ToLower(word)
	if len([]rune(word)) < s.minWordLength || !hasLetter(word) {
		return false
	}
	if sw, ok := s.dictionary.(StopWordChecker); ok && sw.IsStopWord(word) {
		return false
	}
	found, err := s.dictionary.ContainsTerm(word)
	return err == nil && !found
}

// Suggest returns dictionary terms within the edit distance of word, best first. The
// score favours close terms and, among equally close terms, frequent ones.
func (s *SpellChecker) Suggest(word string) []Suggestion {
	word = strings.ToLower(word)
	wordLen := len([]rune(word))
	var out []Suggestion
	for _, term := range s.terms {
		if term == word {
			continue
		}
		diff := len([]rune(term)) - wordLen
		if diff < -s.maxDistance || diff > s.maxDistance {
			continue
		}
		distance := DamerauLevenshteinDistance(word, term)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(term)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      term,
			Distance:  distance,
			Frequency: freq,
			Score:     math.Log1p(float64(freq)) / float64(distance+1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// GetSuggestedQuery returns the corrected query, or query itself when nothing changed.
func (s *SpellChecker) GetSuggestedQuery(query string) string {
	result := s.Check(query)
	if !result.HasCorrections {
		return query
	}
	return result.CorrectedQuery
}

// GetTopSuggestions returns up to n alternative queries. The first is the query with
// every misspelled word replaced by its best suggestion; the rest swap in the runner-up
// suggestions for the first misspelled word.
func (s *SpellChecker) GetTopSuggestions(query string, n int) []string {
	if n <= 0 {
		return nil
	}
	result := s.Check(query)
	if !result.HasCorrections {
		return nil
	}
	out := []string{result.CorrectedQuery}
	seen := map[string]struct{}{result.CorrectedQuery: {}}

	words := strings.Fields(result.CorrectedQuery)
	first := strings.ToLower(result.MisspelledTerms[0])
	pos := -1
	for i, w := range splitWords(query) {
		if w == first {
			pos = i
			break
		}
	}
	if pos < 0 || pos >= len(words) {
		return out
	}
	for _, alt := range s.Suggest(first)[1:] {
		if len(out) >= n {
			break
		}
		variant := append([]string(nil), words...)
		variant[pos] = alt.Term
		q := strings.Join(variant, " ")
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// splitWords lowercases query and splits it on anything that is not a letter or digit.
func splitWords(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
