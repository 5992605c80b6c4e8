package extract

import (
	"strings"
	"unicode"
)

// Run is a contiguous piece of paragraph text sharing one set of character properties.
type Run struct {
	Text string
	Bold bool
}

// Paragraph is a parsed paragraph with the formatting signals a classifier may inspect.
type Paragraph struct {
	Runs []Run
	// Style is the paragraph style id (e.g. "Heading1"), empty when unstyled.
	Style string
}

// Text returns the paragraph text with surrounding whitespace trimmed.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}

// StructuralClassifier decides whether a paragraph opens a new section.
type StructuralClassifier interface {
	IsHeading(p Paragraph) bool
}

// ClassifierFunc adapts a function to StructuralClassifier.
type ClassifierFunc func(p Paragraph) bool

// IsHeading calls f(p).
func (f ClassifierFunc) IsHeading(p Paragraph) bool { return f(p) }

// BoldClassifier treats a paragraph as a heading when every run carrying text is bold,
// or when it uses a heading paragraph style.
type BoldClassifier struct{}

// IsHeading implements StructuralClassifier.
func (BoldClassifier) IsHeading(p Paragraph) bool {
	if p.Text() == "" {
		return false
	}
	if isHeadingStyle(p.Style) {
		return true
	}
	return allRunsBold(p.Runs)
}

func allRunsBold(runs []Run) bool {
	withText := 0
	for _, r := range runs {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		withText++
		if !r.Bold {
			return false
		}
	}
	return withText > 0
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return s == "title" || strings.HasPrefix(s, "heading")
}

// maxHeadingLength bounds heading text; longer bold lines are emphasized body text.
const maxHeadingLength = 120

// genericLabels are bold run-in labels used inside procedure steps, not section titles.
var genericLabels = map[string]struct{}{
	"steps":                {},
	"purpose":              {},
	"owner":                {},
	"timing":               {},
	"when applicable":      {},
	"contact history":      {},
	"cs attempts":          {},
	"collection attempts":  {},
	"requested assistance": {},
	"common triggers":      {},
	"summary of call":      {},
	"accounting impact":    {},
	"interest application": {},
}

// dialogueMarkers identify bold lines from call scripts and email templates.
var dialogueMarkers = []string{"hi [", "this is [", "thank you", "calling from"}

// SOPClassifier detects section headings in procedure documents written with bold
// paragraphs instead of heading styles. Bold text must also look like a title: not a
// generic step label, not a dialogue line, and either mostly uppercase or a short
// multi-word phrase. Paragraphs with a heading style are always headings.
type SOPClassifier struct {
	Base StructuralClassifier
}

// NewSOPClassifier returns an SOPClassifier over BoldClassifier.
func NewSOPClassifier() *SOPClassifier {
	return &SOPClassifier{Base: BoldClassifier{}}
}

// IsHeading implements StructuralClassifier.
func (c *SOPClassifier) IsHeading(p Paragraph) bool {
	text := p.Text()
	if text == "" || len(text) > maxHeadingLength {
		return false
	}
	if isHeadingStyle(p.Style) {
		return true
	}
	base := c.Base
	if base == nil {
		base = BoldClassifier{}
	}
	if !base.IsHeading(p) {
		return false
	}
	return looksLikeTitle(text)
}

func looksLikeTitle(text string) bool {
	clean := strings.TrimRight(text, ":- ")
	lower := strings.ToLower(clean)
	if _, ok := genericLabels[lower]; ok {
		return false
	}
	if strings.HasPrefix(lower, "owner:") || strings.HasPrefix(lower, "timing:") {
		return false
	}
	lowerText := strings.ToLower(text)
	for _, m := range dialogueMarkers {
		if strings.Contains(lowerText, m) {
			return false
		}
	}
	if upperRatio(text) > 0.6 {
		return true
	}
	return len(text) < 80 && len(strings.Fields(clean)) >= 2
}

// upperRatio is the share of uppercase letters among non-space characters.
func upperRatio(text string) float64 {
	var upper, total int
	for _, r := range text {
		if r == ' ' {
			continue
		}
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}

// TextClassifier finds headings in formats without character styling: markdown "#"
// lines, and short lines that are mostly uppercase.
type TextClassifier struct {
	MaxLength int
}

// IsHeading implements StructuralClassifier.
func (c TextClassifier) IsHeading(p Paragraph) bool {
	text := p.Text()
	if text == "" || strings.Contains(text, "\n") {
		return false
	}
	if strings.HasPrefix(text, "#") {
		return strings.TrimSpace(strings.TrimLeft(text, "#")) != ""
	}
	maxLen := c.MaxLength
	if maxLen <= 0 {
		maxLen = 80
	}
	if len(text) > maxLen {
		return false
	}
	return upperRatio(text) > 0.6 && hasLetter(text)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// headingText strips markdown markers from a heading line.
func headingText(text string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), "#"))
}
